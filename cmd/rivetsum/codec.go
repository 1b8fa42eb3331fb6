package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/internal/codec"
	"github.com/rivetq/rivetsum/internal/governor"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCompressCmd(a *app) *cobra.Command {
	var (
		formatName string
		level      int
	)

	cmd := &cobra.Command{
		Use:   "compress <in> <out>",
		Short: "Compress a file into a deflate, zlib or gzip stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := codec.ParseFormat(formatName)
			if err != nil {
				return err
			}
			c, err := codec.NewCompressor(level)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to read input")
			}
			out, err := c.Compress(format, data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], out, 0644); err != nil {
				return errors.Wrap(err, "failed to write output")
			}

			log.Info().
				Str("format", format.String()).
				Int("level", level).
				Int("in", len(data)).
				Int("out", len(out)).
				Msg("Compressed")
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "gzip", "deflate, zlib or gzip")
	cmd.Flags().IntVarP(&level, "level", "l", codec.DefaultLevel, "compression level 0-12")
	return cmd
}

func newDecompressCmd(a *app) *cobra.Command {
	var (
		formatName string
		size       uint64
	)

	cmd := &cobra.Command{
		Use:   "decompress <in> <out>",
		Short: "Decompress a stream whose decompressed size is at most --size bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := codec.ParseFormat(formatName)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to read input")
			}

			gov := governor.New(governor.Config{
				Ratio:     a.cfg.Limits.Ratio,
				Overhead:  a.cfg.Limits.Overhead,
				MaxMemory: a.cfg.Limits.MaxMemory,
			})
			out, err := codec.NewDecompressor(gov).Decompress(format, data, size)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], out, 0644); err != nil {
				return errors.Wrap(err, "failed to write output")
			}

			log.Info().
				Str("format", format.String()).
				Int("in", len(data)).
				Int("out", len(out)).
				Msg("Decompressed")
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "gzip", "deflate, zlib or gzip")
	cmd.Flags().Uint64VarP(&size, "size", "s", 0, "upper bound on the decompressed size in bytes")
	cmd.MarkFlagRequired("size")
	return cmd
}
