/*
 * Copyright 2024 CrestDB, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package crestdb

const (
	settingQueryID            = "query_id"
	settingDeduplicationToken = "insert_deduplication_token"
)

// InsertSettings carries request-level options for one insert. The zero
// value (or a nil pointer) means server defaults for everything.
type InsertSettings struct {
	options map[string]string
}

func NewInsertSettings() *InsertSettings {
	return &InsertSettings{options: make(map[string]string)}
}

// SetQueryID attaches a caller-chosen query ID, useful for idempotent
// replays and tracing. When absent a random UUID is generated.
func (s *InsertSettings) SetQueryID(id string) *InsertSettings {
	return s.SetOption(settingQueryID, id)
}

// SetDeduplicationToken attaches a token the server uses to recognize and
// discard duplicate inserts.
func (s *InsertSettings) SetDeduplicationToken(token string) *InsertSettings {
	return s.SetOption(settingDeduplicationToken, token)
}

// SetOption sets an arbitrary request-level option passed through to the
// server.
func (s *InsertSettings) SetOption(key, value string) *InsertSettings {
	if s.options == nil {
		s.options = make(map[string]string)
	}
	s.options[key] = value
	return s
}

// Option returns the value of an option, if set.
func (s *InsertSettings) Option(key string) (string, bool) {
	if s == nil || s.options == nil {
		return "", false
	}
	v, ok := s.options[key]
	return v, ok
}

// QuerySettings carries request-level options for one query.
type QuerySettings struct {
	// Format is the result set format requested from the server.
	// Defaults to FormatTabSeparated.
	Format Format

	options map[string]string
}

func NewQuerySettings() *QuerySettings {
	return &QuerySettings{options: make(map[string]string)}
}

func (s *QuerySettings) SetQueryID(id string) *QuerySettings {
	return s.SetOption(settingQueryID, id)
}

func (s *QuerySettings) SetFormat(format Format) *QuerySettings {
	s.Format = format
	return s
}

func (s *QuerySettings) SetOption(key, value string) *QuerySettings {
	if s.options == nil {
		s.options = make(map[string]string)
	}
	s.options[key] = value
	return s
}

func (s *QuerySettings) Option(key string) (string, bool) {
	if s == nil || s.options == nil {
		return "", false
	}
	v, ok := s.options[key]
	return v, ok
}

// requestOptions returns the options to attach to the outbound request:
// everything except query_id, which travels as a first-class request field.
func requestOptions(options map[string]string) map[string]string {
	if len(options) == 0 {
		return nil
	}
	out := make(map[string]string, len(options))
	for k, v := range options {
		if k == settingQueryID {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
