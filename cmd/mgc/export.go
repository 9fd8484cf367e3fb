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

	"mgc/pkg/service"

	"github.com/spf13/cobra"
)

var (
	exportFrom int64
	exportTo   int64
	exportStem string
)

// exportCmd exports a frame range using the project export config.
var exportCmd = &cobra.Command{
	Use:   "export <project.json>",
	Short: "Export a frame range as a PNG sequence or encoded video.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().Int64Var(&exportFrom, "from", 0, "first frame")
	exportCmd.Flags().Int64Var(&exportTo, "to", -1, "end frame, exclusive, default full work area")
	exportCmd.Flags().StringVar(&exportStem, "out", "out/{frame:04}", "output stem")
	exportCmd.Flags().StringVar(&renderComp, "comp", "", "composition id, default first")
}

func runExport(cmd *cobra.Command, args []string) error {
	app, cancel, err := loadProject(args[0])
	if err != nil {
		return err
	}
	defer cancel()

	compID, err := compositionID(app)
	if err != nil {
		return err
	}
	comp, err := app.Service.Project().Composition(compID)
	if err != nil {
		return err
	}

	from, to := exportFrom, exportTo
	if to < 0 {
		from = comp.WorkAreaIn
		to = comp.WorkAreaOut + 1
	}

	cfg := app.Service.Project().Export
	if err := app.Service.RenderRange(
		compID, service.FrameRange{From: from, To: to}, exportStem, cfg,
	); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("exported frames %v..%v\n", from, to-1)
	return nil
}
