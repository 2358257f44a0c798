/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sufficit/go-ami/ami"
	"github.com/sufficit/go-ami/logger"
)

// newSendCmd issues a single ad-hoc action and prints its response.
//
//	amictl send Ping
//	amictl send Originate Channel=SIP/100 Context=default Exten=100 Priority=1
func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <action> [key=value ...]",
		Short: "send one action and print its response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := connectionParamsFromViper()
			if err != nil {
				return err
			}

			log := logger.New(cmd.Context())

			conn := ami.NewConnection(cmd.Context(), params, nil, log)
			defer conn.Dispose()

			ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()

			if err := conn.Login(ctx); err != nil {
				return fmt.Errorf("amictl: login failed: %w", err)
			}

			action := ami.NewAction(args[0])
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("amictl: malformed property %q, expected key=value", kv)
				}
				action.Set(k, v)
			}

			resp, err := conn.Send(ctx, action)
			if err != nil {
				return fmt.Errorf("amictl: send failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", resp.Status)
			if resp.Message != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Message: %s\n", resp.Message)
			}
			if resp.Output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Output:\n%s\n", resp.Output)
			}

			return nil
		},
	}
}
