/*
 * Copyright 2022 ByteDance Inc.
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

package logs

import (
    `os`
    `strconv`
    `time`

    `github.com/rs/zerolog`
)

var debug = enabled(os.Getenv("FLOWGRAPH_DEBUG"))

func enabled(v string) bool {
    ok, err := strconv.ParseBool(v)
    return err == nil && ok
}

// Default returns the logger used when the caller does not supply one. It
// discards everything unless FLOWGRAPH_DEBUG is set.
func Default() zerolog.Logger {
    if !debug {
        return zerolog.Nop()
    } else {
        return New(zerolog.DebugLevel)
    }
}

func New(level zerolog.Level) zerolog.Logger {
    w := zerolog.ConsoleWriter {
        Out        : os.Stderr,
        TimeFormat : time.StampMicro,
    }
    return zerolog.New(w).Level(level).With().Timestamp().Str("module", "flowgraph").Logger()
}
