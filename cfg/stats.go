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

package cfg

import (
    `sync/atomic`
)

// Process-wide counters, read through the debug package.
var (
    GraphCount     uint64 = 0
    NodeCount      uint64 = 0
    LeaveCount     uint64 = 0
    CopyCount      uint64 = 0
    DominanceRuns  uint64 = 0
    DominancePass  uint64 = 0
    CancelledCount uint64 = 0
)

func countGraph(nodes int) {
    atomic.AddUint64(&GraphCount, 1)
    atomic.AddUint64(&NodeCount, uint64(nodes))
}
