/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/tinygpu"
	"github.com/cloudwego/tinygpu/internal/asm"
)

type _Result struct {
	prog *asm.Program
	err  error
}

func readSource(path string) (string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return "", err
	}

	/* file size */
	defer fp.Close()
	st, err := fp.Stat()
	if err != nil {
		return "", err
	}

	/* the buffer is overwritten entirely */
	buf := dirtmake.Bytes(int(st.Size()), int(st.Size()))
	if _, err = io.ReadFull(fp, buf); err != nil {
		return "", errors.Wrap(err, path)
	} else {
		return string(buf), nil
	}
}

func assembleFile(path string, options []tinygpu.Option) _Result {
	if src, err := readSource(path); err != nil {
		return _Result{err: err}
	} else {
		prog, err := tinygpu.Assemble(path, src, options...)
		return _Result{prog: prog, err: err}
	}
}

// assembleFiles assembles every file on the pool, keeping the input order
// in the result.
func assembleFiles(files []string, options []tinygpu.Option, workers int) []_Result {
	wg := new(sync.WaitGroup)
	ret := make([]_Result, len(files))

	/* at least one worker */
	if workers < 1 {
		workers = 1
	}
	pool := gopool.NewPool("tinygpu-asm", int32(workers), gopool.NewConfig())

	/* one task per file */
	for i, path := range files {
		i, path := i, path
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			ret[i] = assembleFile(path, options)
		})
	}

	/* wait for all of them */
	wg.Wait()
	return ret
}

func printErrors(w io.Writer, err error) {
	if diags := tinygpu.Diagnostics(err); len(diags) == 0 {
		fmt.Fprintln(w, err)
	} else {
		for _, d := range diags {
			fmt.Fprintln(w, d)
		}
	}
}

func newAsmCmd(g *globalFlags) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "asm FILE...",
		Args:  cobra.MinimumNArgs(1),
		Short: "Assemble files and print them in canonical syntax",
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := g.options()
			if err != nil {
				return err
			}

			/* print in the input order */
			failed := 0
			for _, r := range assembleFiles(args, options, workers) {
				if r.err != nil {
					printErrors(cmd.ErrOrStderr(), r.err)
					failed++
				} else {
					fmt.Fprint(cmd.OutOrStdout(), r.prog)
				}
			}

			/* any failure fails the command */
			if failed != 0 {
				return errors.Errorf("%d of %d files failed", failed, len(args))
			} else {
				return nil
			}
		},
	}
	cmd.Flags().IntVarP(&workers, "jobs", "j", 4, "Number of files assembled concurrently")
	return cmd
}
