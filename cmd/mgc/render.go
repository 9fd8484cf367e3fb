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

import (
	"fmt"
	"image/png"
	"os"

	"mgc"
	"mgc/pkg/project"

	"github.com/spf13/cobra"
)

var (
	renderFrame int64
	renderScale float64
	renderOut   string
	renderComp  string
)

// renderCmd renders a single frame to a PNG file.
var renderCmd = &cobra.Command{
	Use:   "render <project.json>",
	Short: "Render a single frame of a composition to PNG.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().Int64Var(&renderFrame, "frame", 0, "frame number")
	renderCmd.Flags().Float64Var(&renderScale, "scale", 1, "render scale")
	renderCmd.Flags().StringVar(&renderOut, "out", "frame.png", "output file")
	renderCmd.Flags().StringVar(&renderComp, "comp", "", "composition id, default first")
}

// loadProject assembles the app and loads a project file.
func loadProject(path string) (*mgc.App, func(), error) {
	app, cancel, err := mgc.NewApp(envPath)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("could not read project: %w", err)
	}
	if err := app.Service.Load(data); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("could not load project: %w", err)
	}
	return app, func() { cancel() }, nil
}

func compositionID(app *mgc.App) (project.ID, error) {
	if renderComp != "" {
		return renderComp, nil
	}
	comps := app.Service.Project().Compositions
	if len(comps) == 0 {
		return "", fmt.Errorf("project has no compositions")
	}
	return comps[0].ID, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	app, cancel, err := loadProject(args[0])
	if err != nil {
		return err
	}
	defer cancel()

	compID, err := compositionID(app)
	if err != nil {
		return err
	}

	img, err := app.Service.RenderFrame(compID, renderFrame, renderScale, nil)
	if err != nil {
		return fmt.Errorf("could not render frame: %w", err)
	}

	file, err := os.Create(renderOut)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img.ToRGBA()); err != nil {
		return fmt.Errorf("could not encode png: %w", err)
	}

	fmt.Printf("wrote %v\n", renderOut)
	return file.Close()
}
