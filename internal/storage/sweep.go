/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"log/slog"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
)

// SweepOrphans deletes blobs no live label references. Deleting a label does
// not cascade into the blob store, so orphans accumulate until a sweep is
// requested explicitly (the `gc` command); nothing sweeps implicitly.
// Returns the number of blobs removed.
func SweepOrphans(ctx context.Context, s *BlobStore, doc domain.Document) (int, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sweep")
	live := make(map[string]struct{}, len(doc.Labels))
	for _, lbl := range doc.Labels {
		if id := lbl.Image.BlobID(); id != "" {
			live[id] = struct{}{}
		}
	}
	ids, err := s.IDs(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if _, ok := live[id]; ok {
			continue
		}
		if err := s.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		l.Info("orphaned blobs removed", slog.Int("count", removed))
	}
	return removed, nil
}
