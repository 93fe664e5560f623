/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// nmpack builds and inspects NovelMind secure resource packs.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applog "novelmind/internal/log"
	"novelmind/internal/version"
)

func main() {
	applog.Init(applog.FromEnv())
	root := &cobra.Command{
		Use:   "nmpack",
		Short: "Build and inspect NovelMind resource packs",
	}
	root.Version = version.Version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(buildCmd())
	root.AddCommand(listCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(extractCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// parseKey decodes a hex-encoded AES-256 key; empty means unencrypted.
func parseKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// readOptionalFile returns nil for an empty path.
func readOptionalFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
