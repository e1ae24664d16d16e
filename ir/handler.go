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
    `fmt`
)

// Block is an inclusive range of instructions.
type Block struct {
    First *Instr
    Last  *Instr
}

// ContainsOffset reports whether offset lies in [First.Offset, Last.EndOffset()).
func (self Block) ContainsOffset(offset int) bool {
    return self.First.Offset <= offset && offset < self.Last.EndOffset()
}

func (self Block) Contains(p *Instr) bool {
    return p != nil && self.ContainsOffset(p.Offset)
}

// ContainsBlock reports whether every instruction of b lies inside this block.
func (self Block) ContainsBlock(b Block) bool {
    return self.First.Offset <= b.First.Offset && b.Last.Offset <= self.Last.Offset
}

func (self Block) String() string {
    return fmt.Sprintf("[%d, %d]", self.First.Offset, self.Last.Offset)
}

type HandlerKind uint8

const (
    H_catch HandlerKind = iota
    H_finally
)

func (self HandlerKind) String() string {
    switch self {
        case H_catch   : return "catch"
        case H_finally : return "finally"
        default        : return fmt.Sprintf("HandlerKind(%d)", uint8(self))
    }
}

// ExceptionHandler is one entry of the exception table: instructions in Try
// transfer to Handler when an exception of CatchType (any type for finally
// handlers) is thrown.
type ExceptionHandler struct {
    Kind      HandlerKind
    Try       Block
    Handler   Block
    CatchType string
}

func (self *ExceptionHandler) IsCatch() bool   { return self.Kind == H_catch }
func (self *ExceptionHandler) IsFinally() bool { return self.Kind == H_finally }

func (self *ExceptionHandler) String() string {
    if self.Kind == H_catch && self.CatchType != "" {
        return fmt.Sprintf("catch(%s) try %s handler %s", self.CatchType, self.Try, self.Handler)
    } else {
        return fmt.Sprintf("%s try %s handler %s", self.Kind, self.Try, self.Handler)
    }
}
