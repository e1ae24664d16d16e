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
    `strings`
)

// SwitchInfo is the operand of tableswitch and lookupswitch.
type SwitchInfo struct {
    Low     int32
    Keys    []int32
    Default *Instr
    Targets []*Instr
}

// Instr is a single decoded instruction. Instructions are immutable once the
// program is built, and are linked in offset order through Next and Prev.
type Instr struct {
    Op     OpCode
    Offset int
    Iv     int64
    Br     *Instr
    Sw     *SwitchInfo
    Next   *Instr
    Prev   *Instr
}

func (self *Instr) iv(v int64)       *Instr { self.Iv = v; return self }
func (self *Instr) sw(v *SwitchInfo) *Instr { self.Sw = v; return self }

// Size returns the encoded size of the instruction in bytes.
func (self *Instr) Size() int {
    if !self.Op.IsSwitch() {
        return self.Op.info().size
    } else if self.Sw == nil {
        return 1
    } else if self.Op == OP_tableswitch {
        return 13 + 4 * len(self.Sw.Targets)
    } else {
        return 9 + 8 * len(self.Sw.Targets)
    }
}

// EndOffset is the offset of the first byte after this instruction.
func (self *Instr) EndOffset() int {
    return self.Offset + self.Size()
}

func (self *Instr) String() string {
    return self.disassemble(nil)
}

func (self *Instr) label(refs map[*Instr]string, p *Instr) string {
    if p == nil {
        return "<nil>"
    } else if lb, ok := refs[p]; ok {
        return lb
    } else {
        return fmt.Sprintf("#%d", p.Offset)
    }
}

func (self *Instr) formatTable(refs map[*Instr]string) string {
    ret := make([]string, 0, len(self.Sw.Targets) + 1)

    /* format every case */
    for i, lb := range self.Sw.Targets {
        if self.Op == OP_tableswitch {
            ret = append(ret, fmt.Sprintf("%d: %s", int(self.Sw.Low) + i, self.label(refs, lb)))
        } else {
            ret = append(ret, fmt.Sprintf("%d: %s", self.Sw.Keys[i], self.label(refs, lb)))
        }
    }

    /* add the default case */
    ret = append(ret, "default: " + self.label(refs, self.Sw.Default))
    return "{" + strings.Join(ret, ", ") + "}"
}

func (self *Instr) disassemble(refs map[*Instr]string) string {
    switch self.Op.OperandType() {
        case OT_none        : return self.Op.String()
        case OT_branch      : fallthrough
        case OT_branch_wide : return fmt.Sprintf("%-12s %s", self.Op, self.label(refs, self.Br))
        case OT_local       : return fmt.Sprintf("%-12s %%%d", self.Op, self.Iv)
        case OT_const       : return fmt.Sprintf("%-12s $%d", self.Op, self.Iv)
        case OT_switch      : return fmt.Sprintf("%-12s %s", self.Op, self.formatTable(refs))
        default             : panic(fmt.Sprintf("invalid operand type: %d", self.Op.OperandType()))
    }
}
