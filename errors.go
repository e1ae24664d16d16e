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

package flowgraph

import (
    `github.com/cloudwego/flowgraph/cfg`
)

// ErrCancelled is matched by the error of a build whose context was
// cancelled during dominance computation.
var ErrCancelled = cfg.ErrCancelled

// PreconditionError occurs when the input is structurally invalid, such as an
// empty or unsorted instruction stream.
type PreconditionError = cfg.PreconditionError

// InvariantError occurs when the exception table is inconsistent with the
// instruction stream, or the graph otherwise breaks an invariant.
type InvariantError = cfg.InvariantError
