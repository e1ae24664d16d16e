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
    `strconv`
    `strings`
)

type _PendingRef struct {
    lb string
    to **Instr
}

type _PendingHandler struct {
    kind HandlerKind
    name string
    try  [2]string
    hdl  [2]string
}

// Builder assembles a Program. Labels name the position of the next emitted
// instruction, so a label used as the end of a range is exclusive.
type Builder struct {
    i     int
    ins   []*Instr
    refs  map[string]int
    pends []_PendingRef
    ehs   []_PendingHandler
}

func CreateBuilder() *Builder {
    return newBuilder()
}

func (self *Builder) expand(lb string) string {
    if strings.Contains(lb, "{n}") {
        return strings.ReplaceAll(lb, "{n}", strconv.Itoa(self.i))
    } else {
        return lb
    }
}

func (self *Builder) add(p *Instr) *Instr {
    self.ins = append(self.ins, p)
    return p
}

func (self *Builder) ref(to string, slot **Instr) {
    self.pends = append(self.pends, _PendingRef {
        lb: self.expand(to),
        to: slot,
    })
}

func (self *Builder) jmp(p *Instr, to string) *Instr {
    self.ref(to, &p.Br)
    return self.add(p)
}

// Next advances the "{n}" placeholder counter.
func (self *Builder) Next() {
    self.i++
}

func (self *Builder) Label(to string) {
    to = self.expand(to)

    /* check for duplications */
    if _, ok := self.refs[to]; ok {
        panic("label " + to + " has already been linked")
    }

    /* mark the label as resolved */
    self.refs[to] = len(self.ins)
}

func (self *Builder) handler(kind HandlerKind, tryFrom string, tryTo string, from string, to string, name string) {
    self.ehs = append(self.ehs, _PendingHandler {
        kind: kind,
        name: name,
        try : [2]string { self.expand(tryFrom), self.expand(tryTo) },
        hdl : [2]string { self.expand(from), self.expand(to) },
    })
}

// Catch registers a catch handler. All four labels follow the Label
// convention, the "to" labels are exclusive.
func (self *Builder) Catch(tryFrom string, tryTo string, from string, to string, catchType string) {
    self.handler(H_catch, tryFrom, tryTo, from, to, catchType)
}

// Finally registers a finally handler.
func (self *Builder) Finally(tryFrom string, tryTo string, from string, to string) {
    self.handler(H_finally, tryFrom, tryTo, from, to, "")
}

func (self *Builder) index(lb string) int {
    if i, ok := self.refs[lb]; !ok {
        panic("labels are not fully resolved: " + lb)
    } else {
        return i
    }
}

func (self *Builder) block(r [2]string) Block {
    i := self.index(r[0])
    j := self.index(r[1])

    /* the range must cover at least one instruction */
    if i >= j || j > len(self.ins) {
        panic(fmt.Sprintf("invalid instruction range: %s .. %s", r[0], r[1]))
    }

    /* construct the block */
    return Block {
        First : self.ins[i],
        Last  : self.ins[j - 1],
    }
}

func (self *Builder) Build() (r Program) {
    off := 0
    ins := self.ins

    /* assign offsets and link the instructions together */
    for i, p := range ins {
        if p.Offset = off; i != 0 {
            p.Prev = ins[i - 1]
            ins[i - 1].Next = p
        }
        off += p.Size()
    }

    /* resolve all the references */
    for _, v := range self.pends {
        if i := self.index(v.lb); i >= len(ins) {
            panic("label " + v.lb + " points past the end of program")
        } else {
            *v.to = ins[i]
        }
    }

    /* build the exception table */
    for _, eh := range self.ehs {
        r.Handlers = append(r.Handlers, &ExceptionHandler {
            Kind      : eh.kind,
            Try       : self.block(eh.try),
            Handler   : self.block(eh.hdl),
            CatchType : eh.name,
        })
    }

    /* the Builder's life-time ends here */
    r.Instrs = ins
    freeBuilder(self)
    return
}

func (self *Builder) NOP() *Instr {
    return self.add(newInstr(OP_nop))
}

func (self *Builder) CONST(v int64) *Instr {
    return self.add(newInstr(OP_const).iv(v))
}

func (self *Builder) LOAD(slot int) *Instr {
    return self.add(newInstr(OP_load).iv(int64(slot)))
}

func (self *Builder) STORE(slot int) *Instr {
    return self.add(newInstr(OP_store).iv(int64(slot)))
}

func (self *Builder) ADD() *Instr {
    return self.add(newInstr(OP_add))
}

func (self *Builder) INVOKE(fn int) *Instr {
    return self.add(newInstr(OP_invoke).iv(int64(fn)))
}

func (self *Builder) IFEQ(to string) *Instr {
    return self.jmp(newInstr(OP_ifeq), to)
}

func (self *Builder) IFNE(to string) *Instr {
    return self.jmp(newInstr(OP_ifne), to)
}

func (self *Builder) IFLT(to string) *Instr {
    return self.jmp(newInstr(OP_iflt), to)
}

func (self *Builder) IFGE(to string) *Instr {
    return self.jmp(newInstr(OP_ifge), to)
}

func (self *Builder) GOTO(to string) *Instr {
    return self.jmp(newInstr(OP_goto), to)
}

func (self *Builder) GOTO_W(to string) *Instr {
    return self.jmp(newInstr(OP_goto_w), to)
}

func (self *Builder) JSR(to string) *Instr {
    return self.jmp(newInstr(OP_jsr), to)
}

func (self *Builder) JSR_W(to string) *Instr {
    return self.jmp(newInstr(OP_jsr_w), to)
}

func (self *Builder) RET(slot int) *Instr {
    return self.add(newInstr(OP_ret).iv(int64(slot)))
}

func (self *Builder) TABLESWITCH(low int32, def string, cases ...string) *Instr {
    sw := &SwitchInfo{Low: low, Targets: make([]*Instr, len(cases))}
    self.ref(def, &sw.Default)

    /* add every case */
    for i, lb := range cases {
        self.ref(lb, &sw.Targets[i])
    }

    /* add to instruction buffer */
    return self.add(newInstr(OP_tableswitch).sw(sw))
}

func (self *Builder) LOOKUPSWITCH(def string, keys []int32, cases ...string) *Instr {
    if len(keys) != len(cases) {
        panic("lookupswitch: keys and cases mismatch")
    }

    /* create the switch table */
    sw := &SwitchInfo{Keys: keys, Targets: make([]*Instr, len(cases))}
    self.ref(def, &sw.Default)

    /* add every case */
    for i, lb := range cases {
        self.ref(lb, &sw.Targets[i])
    }

    /* add to instruction buffer */
    return self.add(newInstr(OP_lookupswitch).sw(sw))
}

func (self *Builder) RETURN() *Instr {
    return self.add(newInstr(OP_return))
}

func (self *Builder) ARETURN() *Instr {
    return self.add(newInstr(OP_areturn))
}

func (self *Builder) ATHROW() *Instr {
    return self.add(newInstr(OP_athrow))
}

func (self *Builder) LEAVE(to string) *Instr {
    return self.jmp(newInstr(OP_leave), to)
}

func (self *Builder) ENDFINALLY() *Instr {
    return self.add(newInstr(OP_endfinally))
}
