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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/tinygpu"
)

func expandSource(pseudo string, value string, rd string, tmp string) (string, error) {
	switch pseudo {
	case "set":
		return fmt.Sprintf("set %s, %s", value, rd), nil
	case "setx":
		return fmt.Sprintf("setx %s, %s, %s", value, tmp, rd), nil
	default:
		return "", errors.Errorf("unknown pseudo instruction %q, expected set or setx", pseudo)
	}
}

func newExpandCmd(g *globalFlags) *cobra.Command {
	var rd string
	var tmp string
	cmd := &cobra.Command{
		Use:   "expand set|setx VALUE",
		Args:  cobra.ExactArgs(2),
		Short: "Show the expansion of a set or setx pseudo instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := g.options()
			if err != nil {
				return err
			}

			/* build the statement */
			src, err := expandSource(args[0], args[1], rd, tmp)
			if err != nil {
				return err
			}

			/* assemble it */
			prog, err := tinygpu.Assemble("<expand>", src, options...)
			if err != nil {
				printErrors(cmd.ErrOrStderr(), err)
				return errors.New("expansion failed")
			}

			/* one instruction per line */
			fmt.Fprint(cmd.OutOrStdout(), prog)
			return nil
		},
	}
	cmd.Flags().StringVar(&rd, "rd", "%r1", "Destination register")
	cmd.Flags().StringVar(&tmp, "tmp", "%r2", "Temporary register for setx")
	return cmd
}
