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

// Program is a method body: instructions in offset order and the exception
// table protecting them.
type Program struct {
    Instrs   []*Instr
    Handlers []*ExceptionHandler
}

func (self Program) Len() int {
    return len(self.Instrs)
}

func (self Program) Disassemble() string {
    refs := make(map[*Instr]string)
    ret := make([]string, 0, len(self.Instrs) + len(self.Handlers) + 1)

    /* prescan to get all the labels */
    for _, p := range self.Instrs {
        if p.Op.HasBranchTarget() && p.Br != nil {
            refs[p.Br] = fmt.Sprintf("L_%d", p.Br.Offset)
        } else if p.Op.IsSwitch() && p.Sw != nil {
            refs[p.Sw.Default] = fmt.Sprintf("L_%d", p.Sw.Default.Offset)
            for _, v := range p.Sw.Targets {
                refs[v] = fmt.Sprintf("L_%d", v.Offset)
            }
        }
    }

    /* handler entries are labeled as well */
    for _, eh := range self.Handlers {
        refs[eh.Handler.First] = fmt.Sprintf("L_%d", eh.Handler.First.Offset)
    }

    /* disassemble each instruction */
    for _, p := range self.Instrs {
        if lb, ok := refs[p]; !ok {
            ret = append(ret, fmt.Sprintf("%06x |     %s", p.Offset, p.disassemble(refs)))
        } else {
            ret = append(ret, fmt.Sprintf("%06x | %s:", p.Offset, lb), fmt.Sprintf("%06x |     %s", p.Offset, p.disassemble(refs)))
        }
    }

    /* dump the exception table */
    for _, eh := range self.Handlers {
        ret = append(ret, "       | " + eh.String())
    }

    /* join them together */
    return strings.Join(ret, "\n")
}
