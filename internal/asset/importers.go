/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package asset

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font/sfnt"

	// Decoders beyond the stdlib formats.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"

	"novelmind/internal/vfs"
)

// thumbnailMaxEdge bounds generated preview images.
const thumbnailMaxEdge = 128

// ImageImporter imports textures: validates the image decodes and writes
// a scaled PNG thumbnail next to the imported file.
type ImageImporter struct{}

func (ImageImporter) Name() string { return "image" }

func (ImageImporter) SupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".bmp", ".webp", ".tif", ".tiff", ".gif"}
}

func (ImageImporter) AssetType() vfs.ResourceType { return vfs.Texture }

func (i ImageImporter) CanImport(path string) bool {
	return hasExtension(path, i.SupportedExtensions())
}

func (i ImageImporter) Import(source, dest string) (*Metadata, error) {
	img, format, err := decodeImage(source)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	meta, err := baseImport(source, dest, vfs.Texture)
	if err != nil {
		return nil, err
	}
	settings, _ := json.Marshal(map[string]any{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	})
	meta.ImporterSettings = settings
	thumb := dest + ".thumb.png"
	if err := writeThumbnail(img, thumb); err == nil {
		meta.ThumbnailPath = thumb
	}
	return meta, nil
}

func (i ImageImporter) Reimport(existing *Metadata) (*Metadata, error) {
	img, format, err := decodeImage(existing.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	meta, err := baseReimport(existing)
	if err != nil {
		return nil, err
	}
	settings, _ := json.Marshal(map[string]any{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	})
	meta.ImporterSettings = settings
	if meta.ThumbnailPath != "" {
		_ = writeThumbnail(img, meta.ThumbnailPath)
	}
	return meta, nil
}

func decodeImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()
	return image.Decode(f)
}

// writeThumbnail scales the image to fit thumbnailMaxEdge and writes a
// PNG preview.
func writeThumbnail(img image.Image, path string) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return fmt.Errorf("empty image")
	}
	scale := float64(thumbnailMaxEdge) / float64(max(w, h))
	if scale > 1 {
		scale = 1
	}
	tw, th := int(float64(w)*scale), int(float64(h)*scale)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return png.Encode(f, dst)
}

// AudioImporter imports audio clips by copy; decoding stays with the
// runtime.
type AudioImporter struct{}

func (AudioImporter) Name() string { return "audio" }

func (AudioImporter) SupportedExtensions() []string {
	return []string{".wav", ".ogg", ".mp3", ".flac", ".opus"}
}

func (AudioImporter) AssetType() vfs.ResourceType { return vfs.Audio }

func (a AudioImporter) CanImport(path string) bool {
	return hasExtension(path, a.SupportedExtensions())
}

func (AudioImporter) Import(source, dest string) (*Metadata, error) {
	return baseImport(source, dest, vfs.Audio)
}

func (AudioImporter) Reimport(existing *Metadata) (*Metadata, error) {
	return baseReimport(existing)
}

// FontImporter imports fonts, validating them with the sfnt parser and
// recording the family name in the importer settings.
type FontImporter struct{}

func (FontImporter) Name() string { return "font" }

func (FontImporter) SupportedExtensions() []string {
	return []string{".ttf", ".otf"}
}

func (FontImporter) AssetType() vfs.ResourceType { return vfs.Font }

func (f FontImporter) CanImport(path string) bool {
	return hasExtension(path, f.SupportedExtensions())
}

func (f FontImporter) Import(source, dest string) (*Metadata, error) {
	family, err := fontFamily(source)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	meta, err := baseImport(source, dest, vfs.Font)
	if err != nil {
		return nil, err
	}
	settings, _ := json.Marshal(map[string]any{"family": family})
	meta.ImporterSettings = settings
	return meta, nil
}

func (f FontImporter) Reimport(existing *Metadata) (*Metadata, error) {
	if _, err := fontFamily(existing.SourcePath); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return baseReimport(existing)
}

func fontFamily(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	fnt, err := sfnt.Parse(data)
	if err != nil {
		return "", err
	}
	name, err := fnt.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		return "", nil // valid font without a family record
	}
	return name, nil
}

// ScriptImporter imports story scripts and scans them for asset
// references; the database later resolves them into dependencies.
type ScriptImporter struct{}

func (ScriptImporter) Name() string { return "script" }

func (ScriptImporter) SupportedExtensions() []string {
	return []string{".nms", ".nmscript"}
}

func (ScriptImporter) AssetType() vfs.ResourceType { return vfs.Script }

func (s ScriptImporter) CanImport(path string) bool {
	return hasExtension(path, s.SupportedExtensions())
}

func (s ScriptImporter) Import(source, dest string) (*Metadata, error) {
	meta, err := baseImport(source, dest, vfs.Script)
	if err != nil {
		return nil, err
	}
	refs, err := scanScriptRefs(dest)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		settings, _ := json.Marshal(map[string]any{"refs": refs})
		meta.ImporterSettings = settings
	}
	return meta, nil
}

func (s ScriptImporter) Reimport(existing *Metadata) (*Metadata, error) {
	meta, err := baseReimport(existing)
	if err != nil {
		return nil, err
	}
	refs, err := scanScriptRefs(meta.ImportedPath)
	if err != nil {
		return nil, err
	}
	settings, _ := json.Marshal(map[string]any{"refs": refs})
	meta.ImporterSettings = settings
	return meta, nil
}

// refKeywords introduce a quoted asset name in script source.
var refKeywords = map[string]bool{
	"show": true, "bg": true, "play": true, "music": true,
	"sound": true, "voice": true, "font": true,
}

// scanScriptRefs collects the quoted names following reference keywords.
func scanScriptRefs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var refs []string
	seen := make(map[string]bool)
	fields := strings.Fields(string(data))
	for i := 0; i+1 < len(fields); i++ {
		if !refKeywords[fields[i]] {
			continue
		}
		next := fields[i+1]
		if len(next) >= 2 && next[0] == '"' {
			name := strings.Trim(next, "\";")
			if name != "" && !seen[name] {
				seen[name] = true
				refs = append(refs, name)
			}
		}
	}
	return refs, nil
}

// DataImporter is the fallback for localization and opaque data files.
type DataImporter struct{}

func (DataImporter) Name() string { return "data" }

func (DataImporter) SupportedExtensions() []string {
	return []string{".json", ".cbor", ".dat", ".po", ".csv", ".loc"}
}

func (DataImporter) AssetType() vfs.ResourceType { return vfs.Data }

func (d DataImporter) CanImport(path string) bool {
	return hasExtension(path, d.SupportedExtensions())
}

func (DataImporter) Import(source, dest string) (*Metadata, error) {
	return baseImport(source, dest, vfs.InferType(source))
}

func (DataImporter) Reimport(existing *Metadata) (*Metadata, error) {
	return baseReimport(existing)
}
