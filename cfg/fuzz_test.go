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
    `os`
    `runtime`
    `strconv`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/bytedance/gopkg/util/gctuner`
)

const (
    MemoryLimitEnv        = "MemLimit"
    MB             uint64 = 1024 * 1024
    GB             uint64 = 1024 * MB
)

func FuzzBuildGraph(f *testing.F) {
    var limit uint64 = 4 * GB
    if env := os.Getenv(MemoryLimitEnv); env != "" {
        if v, err := strconv.ParseUint(env, 10, 64); err == nil {
            limit = v * GB
        }
    }

    /* avoid OOM with many fuzzing workers */
    threshold := uint64(float64(limit) * 0.7)
    gctuner.Tuning(threshold / uint64(runtime.GOMAXPROCS(0)))

    /* seed corpus */
    for _, seed := range []int64{1, 7, 42, 1024} {
        f.Add(seed, false)
        f.Add(seed, true)
    }

    /* every generated program must produce a valid graph */
    f.Fuzz(func(t *testing.T, seed int64, copyFinally bool) {
        mode := TransformLeaveEdges
        prog := fakeProgram(gofakeit.New(seed))

        /* select the finally mode */
        if copyFinally {
            mode = CopyFinallyBlocks
        }

        /* build and check everything */
        g, err := BuildGraph(prog.Instrs, prog.Handlers, Config{FinallyMode: mode})
        if err != nil {
            t.Fatalf("seed %d: %v\n%s", seed, err, prog.Disassemble())
        }
        if err = g.ComputeDominance(ctx); err != nil {
            t.Fatalf("seed %d: %v\n%s", seed, err, prog.Disassemble())
        }
        if err = g.ComputeDominanceFrontier(); err != nil {
            t.Fatalf("seed %d: %v\n%s", seed, err, prog.Disassemble())
        }
        if err = g.Validate(); err != nil {
            t.Fatalf("seed %d: %v\n%s", seed, err, prog.Disassemble())
        }
        checkAgainstGonum(t, g, prog.Disassemble())
    })
}
