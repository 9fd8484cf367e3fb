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

package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var frameToken = regexp.MustCompile(`\{frame(?::(\d+))?\}`)

// ExpandStem substitutes naming tokens into an output stem.
// `{project}` and `{composition}` substitute names, `{frame}` and
// `{frame:N}` insert the frame index, zero-padded to width N. When
// no frame token is present and perFrame is set, a `_NNN` suffix is
// appended.
func ExpandStem(stem, projectName, compName string, frame int64, perFrame bool) string {
	out := strings.ReplaceAll(stem, "{project}", projectName)
	out = strings.ReplaceAll(out, "{composition}", compName)

	if frameToken.MatchString(out) {
		out = frameToken.ReplaceAllStringFunc(out, func(token string) string {
			match := frameToken.FindStringSubmatch(token)
			if match[1] == "" {
				return strconv.FormatInt(frame, 10)
			}
			width, _ := strconv.Atoi(match[1])
			return fmt.Sprintf("%0*d", width, frame)
		})
		return out
	}

	if perFrame {
		out += fmt.Sprintf("_%03d", frame)
	}
	return out
}

// HasFrameToken reports whether the stem contains a frame token.
func HasFrameToken(stem string) bool {
	return frameToken.MatchString(stem)
}
