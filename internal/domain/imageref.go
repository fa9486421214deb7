/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ImageRefKind discriminates the schemes a label image reference can use.
type ImageRefKind int

const (
	// ImageEmpty renders the placeholder.
	ImageEmpty ImageRefKind = iota
	// ImageRemote is an external http(s) URL rendered directly.
	ImageRemote
	// ImageInline is a self-contained base64 data URI.
	ImageInline
	// ImageDurable points into the blob store ("idb://<id>").
	ImageDurable
	// ImageSession is a process-lifetime handle ("mem://<n>"). Session refs
	// are never persisted: they marshal to the empty string.
	ImageSession
)

const (
	durablePrefix = "idb://"
	sessionPrefix = "mem://"
	inlinePrefix  = "data:"
)

// ImageRef is a tagged image reference. The zero value is the empty ref.
// On the wire it is the single imageUrl string; ParseImageRef classifies the
// scheme, String reproduces it.
type ImageRef struct {
	kind  ImageRefKind
	value string // blob id for Durable, handle for Session, URI otherwise
}

// ParseImageRef classifies a raw imageUrl string. Legacy browser "blob:"
// object URLs are session-scoped in the source system and therefore map to
// the empty ref here: they cannot outlive the process that minted them.
func ParseImageRef(raw string) ImageRef {
	switch {
	case raw == "":
		return ImageRef{}
	case strings.HasPrefix(raw, durablePrefix):
		return DurableImage(strings.TrimPrefix(raw, durablePrefix))
	case strings.HasPrefix(raw, sessionPrefix):
		return SessionImage(strings.TrimPrefix(raw, sessionPrefix))
	case strings.HasPrefix(raw, inlinePrefix):
		return InlineImage(raw)
	case strings.HasPrefix(raw, "blob:"):
		return ImageRef{}
	default:
		return RemoteImage(raw)
	}
}

// RemoteImage returns a ref to an external URL.
func RemoteImage(url string) ImageRef { return ImageRef{kind: ImageRemote, value: url} }

// InlineImage returns a ref holding a complete data URI.
func InlineImage(dataURI string) ImageRef { return ImageRef{kind: ImageInline, value: dataURI} }

// DurableImage returns a ref to a blob store entry.
func DurableImage(blobID string) ImageRef { return ImageRef{kind: ImageDurable, value: blobID} }

// SessionImage returns a process-scoped handle ref.
func SessionImage(handle string) ImageRef { return ImageRef{kind: ImageSession, value: handle} }

// Kind returns the scheme tag.
func (r ImageRef) Kind() ImageRefKind { return r.kind }

// IsZero reports whether the ref is empty.
func (r ImageRef) IsZero() bool { return r.kind == ImageEmpty }

// BlobID returns the blob store id for durable refs, else "".
func (r ImageRef) BlobID() string {
	if r.kind == ImageDurable {
		return r.value
	}
	return ""
}

// Handle returns the session handle for session refs, else "".
func (r ImageRef) Handle() string {
	if r.kind == ImageSession {
		return r.value
	}
	return ""
}

// DataURI returns the inline data URI for inline refs, else "".
func (r ImageRef) DataURI() string {
	if r.kind == ImageInline {
		return r.value
	}
	return ""
}

// URL returns the external URL for remote refs, else "".
func (r ImageRef) URL() string {
	if r.kind == ImageRemote {
		return r.value
	}
	return ""
}

// String renders the wire form of the reference.
func (r ImageRef) String() string {
	switch r.kind {
	case ImageEmpty:
		return ""
	case ImageDurable:
		return durablePrefix + r.value
	case ImageSession:
		return sessionPrefix + r.value
	default:
		return r.value
	}
}

// Persistable returns the ref suitable for durable storage or export files.
// Session refs degrade to empty; everything else passes through verbatim.
func (r ImageRef) Persistable() ImageRef {
	if r.kind == ImageSession {
		return ImageRef{}
	}
	return r
}

// MarshalJSON emits the imageUrl string. Session refs serialize as "" so a
// process-scoped handle can never leak into durable state or an export file.
func (r ImageRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Persistable().String())
}

// EncodeDataURI renders bytes as a base64 data URI with the given media type.
func EncodeDataURI(mediaType string, data []byte) string {
	return inlinePrefix + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI extracts the payload bytes of a data URI. Base64 payloads
// are decoded; anything else is treated as percent-encoded text.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, inlinePrefix) {
		return nil, fmt.Errorf("decode data uri: missing %q prefix", inlinePrefix)
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("decode data uri: no payload separator")
	}
	meta, payload := uri[len(inlinePrefix):comma], uri[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return []byte(text), nil
}

// DataURIMediaType returns the media type of a data URI, or "" when absent.
func DataURIMediaType(uri string) string {
	if !strings.HasPrefix(uri, inlinePrefix) {
		return ""
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return ""
	}
	meta := uri[len(inlinePrefix):comma]
	if i := strings.IndexByte(meta, ';'); i >= 0 {
		meta = meta[:i]
	}
	return meta
}

// UnmarshalJSON parses the imageUrl string form.
func (r *ImageRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("imageUrl: %w", err)
	}
	*r = ParseImageRef(s)
	return nil
}
