// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import "github.com/spf13/cobra"

// Execute adds all child commands to the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envPath string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mgc",
	Short: "mgc is a node-graph motion-graphics compositing engine.",
	Long: `mgc evaluates a project's node graph per frame and rasterizes the
result. It renders single frames for preview and exports frame ranges
as PNG sequences or encoded video.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&envPath, "env", "configs/env.yaml", "path to env.yaml")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)
}
