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
	"time"

	"github.com/spf13/cobra"

	"github.com/sufficit/go-ami/ami"
	"github.com/sufficit/go-ami/logger"
)

const dialTimeout = 15 * time.Second

// newLoginCmd connects and authenticates, then reports the negotiated
// session state and exits. Useful as a smoke test for connection parameters.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "connect and authenticate against the configured AMI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := connectionParamsFromViper()
			if err != nil {
				return err
			}

			log := logger.New(cmd.Context())

			conn := ami.NewConnection(cmd.Context(), params, nil, log)
			defer conn.Dispose()

			loginCtx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()

			if err := conn.Login(loginCtx); err != nil {
				return fmt.Errorf("amictl: login failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "connected=%v authenticated=%v\n", conn.IsConnected(), conn.IsAuthenticated())
			return nil
		},
	}
}
