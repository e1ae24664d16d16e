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

package ir

import (
    `sync`
)

var (
    builderPool sync.Pool
)

func newInstr(op OpCode) *Instr {
    return &Instr{Op: op}
}

func newBuilder() *Builder {
    if v := builderPool.Get(); v == nil {
        return allocBuilder()
    } else {
        return resetBuilder(v.(*Builder))
    }
}

func freeBuilder(p *Builder) {
    builderPool.Put(p)
}

func allocBuilder() (p *Builder) {
    p      = new(Builder)
    p.refs = make(map[string]int, 64)
    return
}

func resetBuilder(p *Builder) *Builder {
    p.i     = 0
    p.ins   = nil
    p.ehs   = p.ehs[:0]
    p.pends = p.pends[:0]

    /* clear the label table */
    for k := range p.refs {
        delete(p.refs, k)
    }

    /* the instruction buffer belongs to the last built program */
    return p
}
