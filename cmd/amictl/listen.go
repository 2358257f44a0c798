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
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sufficit/go-ami/ami"
	"github.com/sufficit/go-ami/ami/events"
	"github.com/sufficit/go-ami/logger"
)

// newListenCmd connects, subscribes to every catalog event via a catch-all
// handler, and prints them as they arrive until interrupted.
func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "connect and print events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := connectionParamsFromViper()
			if err != nil {
				return err
			}

			log := logger.New(cmd.Context())

			builder := ami.NewBuilder(cmd.Context(), log)
			events.Register(builder)

			conn := ami.NewConnection(cmd.Context(), params, builder, log)
			defer conn.Dispose()

			loginCtx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()

			if err := conn.Login(loginCtx); err != nil {
				return fmt.Errorf("amictl: login failed: %w", err)
			}

			managerEventType := reflect.TypeOf((*events.ManagerEvent)(nil)).Elem()
			sub := conn.Events().OnAny(managerEventType, func(sender any, event ami.Event) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %+v\n", event.EventKey(), event)
			})
			defer sub.Release()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			return nil
		},
	}
}
