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

	"github.com/spf13/cobra"

	"novelmind/internal/pack"
	"novelmind/internal/vfs"
)

var (
	listKeyHex string
	listPubPEM string
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <pack>",
		Short: "List the resources in a pack",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}
	cmd.Flags().StringVar(&listKeyHex, "key", "", "Hex-encoded AES-256 key for encrypted packs")
	cmd.Flags().StringVar(&listPubPEM, "pubkey", "", "RSA public key PEM for signed packs")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	r, err := openPack(args[0], listKeyHex, listPubPEM)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, id := range r.IDsSorted() {
		e, _ := r.Entry(id)
		fmt.Fprintf(os.Stdout, "%-10s %10d  %s\n", vfs.ResourceType(e.Type), e.UncompressedSize, id)
	}
	return nil
}

func openPack(path, keyHex, pubPEMPath string) (*pack.Reader, error) {
	key, err := parseKey(keyHex)
	if err != nil {
		return nil, err
	}
	pubPEM, err := readOptionalFile(pubPEMPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return pack.Open(path, pack.Options{Key: key, PublicKeyPEM: pubPEM})
}
