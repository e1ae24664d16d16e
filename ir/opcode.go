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

// FlowControl describes how an instruction transfers control.
type FlowControl uint8

const (
    FC_next FlowControl = iota      // falls through to the next instruction
    FC_branch                       // unconditional transfer
    FC_cond                         // conditional transfer, falls through otherwise
    FC_return                       // leaves the method normally
    FC_throw                        // leaves the method exceptionally
)

// OperandType describes the operand carried by an instruction.
type OperandType uint8

const (
    OT_none OperandType = iota
    OT_branch                       // Br, 16-bit displacement
    OT_branch_wide                  // Br, 32-bit displacement
    OT_switch                       // Sw
    OT_local                        // Iv, local variable slot
    OT_const                        // Iv, immediate value
)

type OpCode uint8

const (
    OP_nop OpCode = iota            // no operation
    OP_const                        // Iv -> stack
    OP_load                         // local[Iv] -> stack
    OP_store                        // stack -> local[Iv]
    OP_add                          // stack + stack -> stack
    OP_invoke                       // call, may throw
    OP_ifeq                         // if (stack == 0) Br -> PC
    OP_ifne                         // if (stack != 0) Br -> PC
    OP_iflt                         // if (stack <  0) Br -> PC
    OP_ifge                         // if (stack >= 0) Br -> PC
    OP_goto                         // Br -> PC
    OP_goto_w                       // Br -> PC (wide)
    OP_jsr                          // PC -> stack; Br -> PC
    OP_jsr_w                        // PC -> stack; Br -> PC (wide)
    OP_ret                          // local[Iv] -> PC
    OP_tableswitch                  // Sw.Targets[stack - Sw.Low] -> PC, or Sw.Default
    OP_lookupswitch                 // Sw.Targets[index(Sw.Keys, stack)] -> PC, or Sw.Default
    OP_return                       // return void
    OP_areturn                      // return stack
    OP_athrow                       // throw stack
    OP_leave                        // leave the protected region, Br -> PC
    OP_endfinally                   // end of a finally body
    _OP_max
)

type _OpInfo struct {
    name string
    size int
    fc   FlowControl
    ot   OperandType
}

var _OpTab = [_OP_max]_OpInfo {
    OP_nop          : { "nop"          , 1, FC_next   , OT_none        },
    OP_const        : { "const"        , 2, FC_next   , OT_const       },
    OP_load         : { "load"         , 2, FC_next   , OT_local       },
    OP_store        : { "store"        , 2, FC_next   , OT_local       },
    OP_add          : { "add"          , 1, FC_next   , OT_none        },
    OP_invoke       : { "invoke"       , 3, FC_next   , OT_const       },
    OP_ifeq         : { "ifeq"         , 3, FC_cond   , OT_branch      },
    OP_ifne         : { "ifne"         , 3, FC_cond   , OT_branch      },
    OP_iflt         : { "iflt"         , 3, FC_cond   , OT_branch      },
    OP_ifge         : { "ifge"         , 3, FC_cond   , OT_branch      },
    OP_goto         : { "goto"         , 3, FC_branch , OT_branch      },
    OP_goto_w       : { "goto_w"       , 5, FC_branch , OT_branch_wide },
    OP_jsr          : { "jsr"          , 3, FC_branch , OT_branch      },
    OP_jsr_w        : { "jsr_w"        , 5, FC_branch , OT_branch_wide },
    OP_ret          : { "ret"          , 2, FC_branch , OT_local       },
    OP_tableswitch  : { "tableswitch"  , 0, FC_branch , OT_switch      },
    OP_lookupswitch : { "lookupswitch" , 0, FC_branch , OT_switch      },
    OP_return       : { "return"       , 1, FC_return , OT_none        },
    OP_areturn      : { "areturn"      , 1, FC_return , OT_none        },
    OP_athrow       : { "athrow"       , 1, FC_throw  , OT_none        },
    OP_leave        : { "leave"        , 3, FC_branch , OT_branch      },
    OP_endfinally   : { "endfinally"   , 1, FC_branch , OT_none        },
}

func (self OpCode) info() *_OpInfo {
    if self >= _OP_max {
        panic(fmt.Sprintf("invalid OpCode: 0x%02x", uint8(self)))
    } else {
        return &_OpTab[self]
    }
}

func (self OpCode) String() string {
    if self >= _OP_max {
        return fmt.Sprintf("OpCode(0x%02x)", uint8(self))
    } else {
        return _OpTab[self].name
    }
}

func (self OpCode) FlowControl() FlowControl { return self.info().fc }
func (self OpCode) OperandType() OperandType { return self.info().ot }

// IsBranch reports whether the instruction ends a basic block.
func (self OpCode) IsBranch() bool {
    switch self.FlowControl() {
        case FC_branch, FC_cond, FC_return, FC_throw : return true
        default                                     : return false
    }
}

// IsUnconditionalBranch reports whether control never falls through the
// instruction.
func (self OpCode) IsUnconditionalBranch() bool {
    switch self.FlowControl() {
        case FC_branch, FC_return, FC_throw : return true
        default                            : return false
    }
}

func (self OpCode) IsJumpToSubroutine() bool {
    return self == OP_jsr || self == OP_jsr_w
}

func (self OpCode) IsReturnFromSubroutine() bool {
    return self == OP_ret
}

func (self OpCode) IsLeave() bool {
    switch self {
        case OP_jsr, OP_jsr_w, OP_leave, OP_endfinally : return true
        default                                       : return false
    }
}

func (self OpCode) IsGoto() bool {
    return self == OP_goto || self == OP_goto_w
}

func (self OpCode) IsReturn() bool {
    return self.FlowControl() == FC_return
}

func (self OpCode) IsThrow() bool {
    return self.FlowControl() == FC_throw
}

// HasBranchTarget reports whether the instruction carries a single jump target.
func (self OpCode) HasBranchTarget() bool {
    ot := self.OperandType()
    return ot == OT_branch || ot == OT_branch_wide
}

func (self OpCode) IsSwitch() bool {
    return self.OperandType() == OT_switch
}
