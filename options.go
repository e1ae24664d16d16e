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
    `fmt`

    `github.com/cloudwego/flowgraph/cfg`
    `github.com/cloudwego/flowgraph/internal/opts`
    `github.com/rs/zerolog`
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithFinallyMode selects how jumps leaving a try/finally region are
// resolved.
//
// The default value of this option is "cfg.TransformLeaveEdges", unless the
// `FLOWGRAPH_COPY_FINALLY` environment variable says otherwise.
func WithFinallyMode(mode cfg.FinallyMode) Option {
    switch mode {
        case cfg.TransformLeaveEdges : return WithCopyFinallyBlocks(false)
        case cfg.CopyFinallyBlocks   : return WithCopyFinallyBlocks(true)
        default                      : panic(fmt.Sprintf("flowgraph: invalid finally mode: %d", mode))
    }
}

// WithCopyFinallyBlocks duplicates the finally handlers for every jump that
// leaves a try/finally region, instead of sharing one handler between all
// of them.
func WithCopyFinallyBlocks(v bool) Option {
    return func(o *opts.Options) { o.CopyFinallyBlocks = v }
}

// WithDominance controls whether dominators and dominance frontiers are
// computed after the graph is built.
//
// The default value of this option is "true".
func WithDominance(v bool) Option {
    return func(o *opts.Options) { o.SkipDominance = !v }
}

// WithLogger sets the logger used to trace the graph construction.
func WithLogger(l zerolog.Logger) Option {
    return func(o *opts.Options) { o.Logger = l }
}

// WithWorkers sets the maximum number of graphs BuildAll builds at the same
// time. Set this option to "0" to build everything at once.
//
// The default value of this option is GOMAXPROCS.
func WithWorkers(n int) Option {
    if n < 0 {
        panic(fmt.Sprintf("flowgraph: invalid worker count: %d", n))
    } else {
        return func(o *opts.Options) { o.MaxWorkers = n }
    }
}

// SetCopyFinallyBlocks sets the default finally mode for all graphs built
// from now on.
//
// This value can also be configured with the `FLOWGRAPH_COPY_FINALLY`
// environment variable.
//
// Returns the old opts.CopyFinallyBlocks value.
func SetCopyFinallyBlocks(v bool) bool {
    v, opts.CopyFinallyBlocks = opts.CopyFinallyBlocks, v
    return v
}

// SetMaxWorkers sets the default worker count of BuildAll.
//
// This value can also be configured with the `FLOWGRAPH_WORKERS`
// environment variable.
//
// Returns the old opts.MaxWorkers value.
func SetMaxWorkers(n int) int {
    n, opts.MaxWorkers = opts.MaxWorkers, n
    return n
}
