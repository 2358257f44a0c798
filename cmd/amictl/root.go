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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sufficit/go-ami/ami"
)

var cfgFile string

// newRootCmd builds the amictl command tree: connection flags bound through
// viper so AMI_* environment variables and a --config file work the same way
// as explicit flags.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "amictl",
		Short:         "amictl talks to an Asterisk Manager Interface server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cobra.OnInitialize(func() { initConfig(root) })

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.amictl.yaml)")
	flags.String("address", "", "AMI server host")
	flags.Uint16("port", 5038, "AMI server port")
	flags.String("username", "", "AMI username")
	flags.String("password", "", "AMI secret")
	flags.Bool("md5", false, "use MD5 challenge/response authentication")
	flags.Bool("force-ipv4", false, "resolve the server address to IPv4 only")
	flags.Bool("keep-alive", true, "reconnect automatically on non-permanent disconnects")

	for _, name := range []string{"address", "port", "username", "password", "md5", "force-ipv4", "keep-alive"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newLoginCmd())
	root.AddCommand(newSendCmd())
	root.AddCommand(newListenCmd())

	return root
}

func initConfig(root *cobra.Command) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".amictl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AMI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(root.ErrOrStderr(), "amictl: using config file", viper.ConfigFileUsed())
	}
}

// connectionParamsFromViper builds ConnectionParameters from whatever flags,
// environment variables and config file viper has merged together, then
// validates them.
func connectionParamsFromViper() (ami.ConnectionParameters, error) {
	params := ami.DefaultConnectionParameters()

	params.Address = viper.GetString("address")
	if port := viper.GetUint("port"); port != 0 {
		params.Port = uint16(port)
	}
	params.Username = viper.GetString("username")
	params.Password = viper.GetString("password")
	params.UseMD5Authentication = viper.GetBool("md5")
	params.ForceIPv4 = viper.GetBool("force-ipv4")
	params.KeepAlive = viper.GetBool("keep-alive")

	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("amictl: invalid connection parameters: %w", err)
	}

	return params, nil
}
