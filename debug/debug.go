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

package debug

import (
    `sync/atomic`

    `github.com/cloudwego/flowgraph/cfg`
)

// A Stats records statistics about the graphs built in this process.
type Stats struct {
    Builder   BuilderStats
    Dominance DominanceStats
}

// A BuilderStats records statistics about the graph construction.
type BuilderStats struct {
    Graphs int
    Nodes  int
    Leaves int
    Copies int
}

// A DominanceStats records statistics about the dominance computation.
type DominanceStats struct {
    Runs      int
    Passes    int
    Cancelled int
}

// GetStats returns statistics of the graph builder.
func GetStats() Stats {
    return Stats {
        Builder: BuilderStats {
            Graphs : int(atomic.LoadUint64(&cfg.GraphCount)),
            Nodes  : int(atomic.LoadUint64(&cfg.NodeCount)),
            Leaves : int(atomic.LoadUint64(&cfg.LeaveCount)),
            Copies : int(atomic.LoadUint64(&cfg.CopyCount)),
        },
        Dominance: DominanceStats {
            Runs      : int(atomic.LoadUint64(&cfg.DominanceRuns)),
            Passes    : int(atomic.LoadUint64(&cfg.DominancePass)),
            Cancelled : int(atomic.LoadUint64(&cfg.CancelledCount)),
        },
    }
}
