/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"novelmind/internal/pack"
	"novelmind/internal/vfs"
)

var (
	buildOut      string
	buildKeyHex   string
	buildCompress bool
	buildSignPEM  string
)

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Pack every file under <dir> into a resource pack",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	cmd.Flags().StringVarP(&buildOut, "out", "o", "resources.nmp", "Output pack file")
	cmd.Flags().StringVar(&buildKeyHex, "key", "", "Hex-encoded AES-256 key; enables encryption")
	cmd.Flags().BoolVar(&buildCompress, "compress", false, "zlib-compress resources")
	cmd.Flags().StringVar(&buildSignPEM, "sign", "", "RSA private key PEM; enables the .sig sidecar")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	dir := args[0]
	key, err := parseKey(buildKeyHex)
	if err != nil {
		return err
	}
	privPEM, err := readOptionalFile(buildSignPEM)
	if err != nil {
		return fmt.Errorf("read signing key: %w", err)
	}

	w := pack.NewWriter()
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		id := filepath.ToSlash(rel)
		return w.Add(id, uint32(vfs.InferType(path)), data)
	})
	if err != nil {
		return err
	}
	if w.Len() == 0 {
		return fmt.Errorf("no files found under %s", dir)
	}

	opts := pack.BuildOptions{
		Compress:      buildCompress,
		Key:           key,
		PrivateKeyPEM: privPEM,
	}
	if err := w.WriteFile(buildOut, opts); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s (%d resources)\n", buildOut, w.Len())
	return nil
}
