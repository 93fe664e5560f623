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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	extractKeyHex string
	extractPubPEM string
	extractOut    string
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <pack> [id]...",
		Short: "Extract resources from a pack (all when no ids given)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().StringVar(&extractKeyHex, "key", "", "Hex-encoded AES-256 key for encrypted packs")
	cmd.Flags().StringVar(&extractPubPEM, "pubkey", "", "RSA public key PEM for signed packs")
	cmd.Flags().StringVarP(&extractOut, "out", "o", ".", "Output directory")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	r, err := openPack(args[0], extractKeyHex, extractPubPEM)
	if err != nil {
		return err
	}
	defer r.Close()

	ids := args[1:]
	if len(ids) == 0 {
		ids = r.IDsSorted()
	}
	for _, id := range ids {
		data, err := r.Read(id)
		if err != nil {
			return fmt.Errorf("resource %s: %w", id, err)
		}
		dst := filepath.Join(extractOut, filepath.FromSlash(id))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
	}
	fmt.Fprintf(os.Stdout, "Extracted %d resources to %s\n", len(ids), extractOut)
	return nil
}
