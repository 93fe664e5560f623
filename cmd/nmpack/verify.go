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
)

var (
	verifyKeyHex string
	verifyPubPEM string
	verifyDeep   bool
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <pack>",
		Short: "Verify header, tables, CRCs, content hash and signature of a pack",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().StringVar(&verifyKeyHex, "key", "", "Hex-encoded AES-256 key for encrypted packs")
	cmd.Flags().StringVar(&verifyPubPEM, "pubkey", "", "RSA public key PEM for signed packs")
	cmd.Flags().BoolVar(&verifyDeep, "deep", false, "Also decode every resource and check per-resource CRCs")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	r, err := openPack(args[0], verifyKeyHex, verifyPubPEM)
	if err != nil {
		return err
	}
	defer r.Close()

	if verifyDeep {
		for _, id := range r.IDsSorted() {
			if _, err := r.Read(id); err != nil {
				return fmt.Errorf("resource %s: %w", id, err)
			}
		}
	}
	fmt.Fprintf(os.Stdout, "OK: %s (%d resources)\n", args[0], len(r.IDs()))
	return nil
}
