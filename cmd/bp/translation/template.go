// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnumListTag     = "%%%enum_list%%%"
	ArrayDataTag    = "%%%array_data%%%"
	VariableNameTag = "%%%variable_name%%%"

	BaseTemplate        = "base.ht"
	TranslationTemplate = "translation.ht"
)

//go:embed templates/*.ht
var builtinTemplates embed.FS

// LoadTemplate reads name from dir, falling back to the built-in copy when
// the directory does not have it.
func LoadTemplate(dir string, name string) (string, error) {
	if dir != "" {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(content), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	content, err := builtinTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("no template named '%s'", name)
	}
	return string(content), nil
}

// RenderEnum fills the enum list of the base header with the keys of base.
// The first enumerator is pinned to 0.
func RenderEnum(template string, base *Translation) string {
	var sb strings.Builder
	for i, key := range base.Keys() {
		if i == 0 {
			fmt.Fprintf(&sb, "    %s=0,\n", key)
		} else {
			fmt.Fprintf(&sb, "    %s,\n", key)
		}
	}
	return strings.ReplaceAll(template, EnumListTag, sb.String())
}
