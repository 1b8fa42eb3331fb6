package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/pkg/checksum"
	"github.com/spf13/cobra"
)

func newSumCmd(a *app) *cobra.Command {
	var kindName string

	cmd := &cobra.Command{
		Use:   "sum [files...]",
		Short: "Print checksums of files, or of stdin when no file is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := checksum.Kinds()
			if kindName != "all" {
				k, err := checksum.ParseKind(kindName)
				if err != nil {
					return err
				}
				kinds = []checksum.Kind{k}
			}

			if len(args) == 0 {
				args = []string{"-"}
			}
			for _, path := range args {
				sums, err := sumPath(path, kinds, a.cfg.Manifest.ChunkSize)
				if err != nil {
					return err
				}
				for i, k := range kinds {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %08x %s\n", k, sums[i], path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindName, "kind", "k", "all", "checksum kind: adler32, crc32 or all")
	return cmd
}

// sumPath streams a file through every kind in chunks of chunkSize bytes.
func sumPath(path string, kinds []checksum.Kind, chunkSize int) ([]uint32, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", path)
		}
		defer f.Close()
		r = f
	}

	sums := make([]uint32, len(kinds))
	for i, k := range kinds {
		sums[i] = k.Initial()
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		for i, k := range kinds {
			sums[i] = checksum.Update(k, sums[i], buf[:n])
		}
		if err == io.EOF {
			return sums, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}
}
