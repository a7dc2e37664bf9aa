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
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cloudwego/tinygpu/internal/target"
)

func printTarget(w io.Writer, tm *target.TargetMachine) error {
	st, err := tm.SubtargetFor("", "")
	if err != nil {
		return err
	}

	/* the machine */
	fmt.Fprintf(w, "data layout: %s\n", tm.Layout)
	fmt.Fprintf(w, "reloc model: %s\n", tm.Reloc)
	fmt.Fprintf(w, "stack align: %d\n", tm.StackAlign)
	fmt.Fprintf(w, "cpu: %s\n", st.CPU)
	fmt.Fprintf(w, "features: %s\n", st.Features)
	fmt.Fprintf(w, "cpus: %s\n", strings.Join(target.CPUs(), ", "))

	/* predefined macros */
	defs := target.Defines()
	keys := maps.Keys(defs)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "define: %s=%s\n", k, defs[k])
	}

	/* register aliases */
	fmt.Fprintln(w, "register aliases:")
	for _, v := range target.GCCRegAliases {
		fmt.Fprintf(w, "  %s -> %s\n", strings.Join(v.Aliases, ", "), v.Register)
	}
	return nil
}

func newTargetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "target",
		Args:  cobra.NoArgs,
		Short: "Print the data layout, subtarget features and register aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.load()
			if err != nil {
				return err
			}

			/* resolve the target */
			tm, err := target.NewTargetMachine(o)
			if err != nil {
				return err
			}
			return printTarget(cmd.OutOrStdout(), tm)
		},
	}
}
