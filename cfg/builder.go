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
    `github.com/cloudwego/flowgraph/ir`
    `github.com/rs/zerolog`
)

const (
    entryPoint NodeID = iota
    regularExit
    exceptionalExit
)

// FinallyMode selects how jumps leaving a try/finally region are resolved.
type FinallyMode uint8

const (
    // TransformLeaveEdges rewrites every leave into an explicit chain of
    // finally handler entry, end of finally and the final target.
    TransformLeaveEdges FinallyMode = iota

    // CopyFinallyBlocks duplicates the finally handler subgraph for every
    // leave, so no finally body is shared between exit paths.
    CopyFinallyBlocks
)

func (self FinallyMode) String() string {
    switch self {
        case TransformLeaveEdges : return "transform"
        case CopyFinallyBlocks   : return "copy"
        default                  : return "FinallyMode(?)"
    }
}

type Config struct {
    FinallyMode FinallyMode
    Logger      *zerolog.Logger
}

type GraphBuilder struct {
    log    zerolog.Logger
    mode   FinallyMode
    ins    []*ir.Instr
    ehs    []*ir.ExceptionHandler
    pos    map[*ir.Instr]int
    jumps  []bool
    blocks []NodeID
    nodes  []*Node
    hnodes map[*ir.ExceptionHandler]NodeID
}

// BuildGraph builds the control flow graph of a method body. The instructions
// must be in offset order and linked through Next and Prev.
func BuildGraph(ins []*ir.Instr, ehs []*ir.ExceptionHandler, cfg Config) (g *Graph, err error) {
    if err = checkInput(ins, ehs); err != nil {
        return nil, err
    }

    /* catch the invariant violations */
    defer rescue(&err)
    return newGraphBuilder(ins, ehs, cfg).Build(), nil
}

func checkInput(ins []*ir.Instr, ehs []*ir.ExceptionHandler) error {
    if len(ins) == 0 {
        return precondition("empty instruction stream")
    }

    /* instructions must be sorted by offset */
    for i, p := range ins {
        if p == nil {
            return precondition("instruction %d is nil", i)
        } else if i != 0 && ins[i - 1].Offset >= p.Offset {
            return precondition("instruction %d at offset %d is out of order", i, p.Offset)
        }
    }

    /* handlers must carry both blocks */
    for i, eh := range ehs {
        if eh == nil {
            return precondition("exception handler %d is nil", i)
        } else if eh.Try.First == nil || eh.Try.Last == nil || eh.Handler.First == nil || eh.Handler.Last == nil {
            return precondition("exception handler %d has an incomplete range", i)
        } else if eh.Try.First.Offset > eh.Try.Last.Offset || eh.Handler.First.Offset > eh.Handler.Last.Offset {
            return precondition("exception handler %d has an inverted range", i)
        }
    }

    /* all checked */
    return nil
}

func newGraphBuilder(ins []*ir.Instr, ehs []*ir.ExceptionHandler, cfg Config) *GraphBuilder {
    ret := &GraphBuilder {
        log    : zerolog.Nop(),
        mode   : cfg.FinallyMode,
        ins    : ins,
        ehs    : append([]*ir.ExceptionHandler(nil), ehs...),
        pos    : make(map[*ir.Instr]int, len(ins)),
        jumps  : make([]bool, len(ins)),
        blocks : make([]NodeID, len(ins)),
        hnodes : make(map[*ir.ExceptionHandler]NodeID, len(ehs)),
    }

    /* use the provided logger if any */
    if cfg.Logger != nil {
        ret.log = *cfg.Logger
    }

    /* index the instructions */
    for i, p := range ins {
        ret.pos[p] = i
    }

    /* the three fixed nodes */
    ret.nodes = []*Node {
        newNode(entryPoint, EntryPoint, 0),
        newNode(regularExit, RegularExit, -1),
        newNode(exceptionalExit, ExceptionalExit, -1),
    }

    /* all done */
    return ret
}

func (self *GraphBuilder) Build() *Graph {
    self.checkDuplicatedFinally()
    self.markJumpTargets()
    self.createNodes()
    self.createRegularControlFlow()
    self.createExceptionalControlFlow()

    /* resolve the leave edges */
    if self.mode == CopyFinallyBlocks {
        self.copyFinallyBlocksIntoLeaveEdges()
    } else {
        self.transformLeaveEdges()
    }

    /* construct the graph */
    g, err := NewGraph(self.nodes)
    if err != nil {
        panic(err)
    }

    /* dump the graph statistics */
    countGraph(len(self.nodes))
    self.log.Debug().
        Int("instrs", len(self.ins)).
        Int("handlers", len(self.ehs)).
        Int("nodes", len(self.nodes)).
        Str("finally", self.mode.String()).
        Msg("control flow graph built")
    return g
}

func (self *GraphBuilder) index(p *ir.Instr) int {
    if i, ok := self.pos[p]; !ok {
        invariant(NoNode, "instruction %v does not belong to the method body", p)
        return -1
    } else {
        return i
    }
}

func (self *GraphBuilder) add(p *Node) *Node {
    self.nodes = append(self.nodes, p)
    return p
}

func (self *GraphBuilder) nextID() NodeID {
    return NodeID(len(self.nodes))
}

func (self *GraphBuilder) markJumpTargets() {
    for _, p := range self.ins {
        if p.Op.HasBranchTarget() {
            self.jumps[self.index(p.Br)] = true
        } else if p.Op.IsSwitch() {
            self.jumps[self.index(p.Sw.Default)] = true
            for _, v := range p.Sw.Targets {
                self.jumps[self.index(v)] = true
            }
        }
    }

    /* handler entries are jump targets as well */
    for _, eh := range self.ehs {
        self.index(eh.Try.First)
        self.index(eh.Try.Last)
        self.index(eh.Handler.Last)
        self.jumps[self.index(eh.Handler.First)] = true
    }
}

func (self *GraphBuilder) createNodes() {
    n := len(self.ins)

    /* find the basic blocks */
    for i := 0; i < n; i++ {
        j := i
        eh := self.innermost(anyHandler, self.ins[i].Offset)

        /* see how big we can make that block */
        for ; j + 1 < n; j++ {
            if self.ins[j].Op.IsBranch() || self.jumps[j + 1] {
                break
            }

            /* never cross the boundary of a try block */
            if self.innermost(anyHandler, self.ins[j + 1].Offset) != eh {
                break
            }
        }

        /* create the node */
        p := self.add(NewBlockNode(self.nextID(), self.ins[i], self.ins[j]))
        for k := i; k <= j; k++ {
            self.blocks[k] = p.id
        }

        /* move to the next block */
        i = j
    }

    /* special nodes for exception handling constructs */
    for _, eh := range self.ehs {
        if eh.IsCatch() {
            self.hnodes[eh] = self.add(NewHandlerNode(self.nextID(), eh, NoNode)).id
        } else {
            id := self.nextID()
            self.hnodes[eh] = self.add(NewHandlerNode(id, eh, id + 1)).id
            self.add(newNode(id + 1, EndFinallyNode, eh.Handler.Last.EndOffset()))
        }
    }
}

// findNode returns the block containing the instruction.
func (self *GraphBuilder) findNode(p *ir.Instr) NodeID {
    return self.blocks[self.index(p)]
}

// blockAt returns the block starting at the instruction.
func (self *GraphBuilder) blockAt(p *ir.Instr) NodeID {
    if id := self.findNode(p); self.nodes[id].start != p {
        invariant(NoNode, "no block starts at offset %d", p.Offset)
        return NoNode
    } else {
        return id
    }
}

func (self *GraphBuilder) link(src NodeID, dst NodeID, kind JumpType) *Edge {
    return link(self.nodes, src, dst, kind)
}

func (self *GraphBuilder) jump(src NodeID, to *ir.Instr, kind JumpType) *Edge {
    return self.link(src, self.blockAt(to), kind)
}

func (self *GraphBuilder) isHandlerStart(p *ir.Instr) bool {
    for _, eh := range self.ehs {
        if eh.Handler.First == p {
            return true
        }
    }
    return false
}

func (self *GraphBuilder) createRegularControlFlow() {
    self.jump(entryPoint, self.ins[0], Normal)

    /* add edges for every basic block */
    for _, p := range self.nodes {
        if p.kind == NormalBlock {
            self.createBlockControlFlow(p)
        }
    }
}

func (self *GraphBuilder) createBlockControlFlow(p *Node) {
    op := p.end.Op

    /* fall through to the next instruction, unless it starts a handler */
    if !op.IsUnconditionalBranch() || op.IsJumpToSubroutine() {
        if next := p.end.Next; next != nil && !self.isHandlerStart(next) {
            self.jump(p.id, next, Normal)
        }
    }

    /* edges for branch instructions */
    for v := p.start; v != nil && v.Offset <= p.end.Offset; v = v.Next {
        if v.Op.HasBranchTarget() {
            self.branch(p.id, v, v.Br)
        } else if v.Op.IsSwitch() {
            self.jump(p.id, v.Sw.Default, Normal)
            for _, to := range v.Sw.Targets {
                self.jump(p.id, to, Normal)
            }
        }
    }

    /* edges for end-finally and return instructions */
    switch {
        case op == ir.OP_endfinally : self.createEndFinallyControlFlow(p)
        case op.IsReturn()          : self.link(p.id, regularExit, Normal)
    }
}

func (self *GraphBuilder) createEndFinallyControlFlow(p *Node) {
    if h := self.innermostHandlerBlock(p.end.Offset, true); self.nodes[h].endFinally != NoNode {
        self.link(p.id, self.nodes[h].endFinally, Normal)
    }
}

// branch adds the edge of a single-target jump, deciding whether it leaves a
// protected region by way of a finally handler.
func (self *GraphBuilder) branch(src NodeID, jmp *ir.Instr, to *ir.Instr) {
    hb := self.innermostHandlerBlock(jmp.Offset, false)
    fo := self.innermostHandlerBlock(jmp.Offset, true)
    ht := self.innermostHandlerBlock(to.Offset, false)
    eh := self.nodes[hb].handler

    /* a jump within a handler is normal control flow */
    if jmp.Op.IsJumpToSubroutine() || ht == hb || (eh != nil && sameRegion(eh, jmp, to)) {
        self.jump(src, to, Normal)
        return
    }

    /* select by the handler type */
    switch self.nodes[hb].kind {
        case CatchHandler   : self.branchFromCatch(src, to, hb, fo, ht)
        case FinallyHandler : self.branchFromFinally(src, jmp, to, hb)
        default             : self.jump(src, to, Normal)
    }
}

func sameRegion(eh *ir.ExceptionHandler, jmp *ir.Instr, to *ir.Instr) bool {
    if eh.Try.Contains(jmp) {
        return eh.Try.Contains(to)
    } else {
        return eh.Handler.Contains(to)
    }
}

func (self *GraphBuilder) branchFromCatch(src NodeID, to *ir.Instr, hb NodeID, fo NodeID, ht NodeID) {
    fh := self.adjacentFinallyNode(hb)

    /* fall back to the enclosing finally if the adjacent one protects it */
    if !self.isFinally(fh) || (self.isFinally(fo) && self.nodes[fh].handler.Try.ContainsBlock(self.nodes[fo].handler.Handler)) {
        fh = fo
    }

    /* leaving the catch block by way of a finally block */
    if self.isFinally(fh) && fh != ht {
        self.jump(src, to, LeaveTry)
    } else {
        self.jump(src, to, Normal)
    }
}

func (self *GraphBuilder) branchFromFinally(src NodeID, jmp *ir.Instr, to *ir.Instr, hb NodeID) {
    if self.nodes[hb].handler.Try.Contains(jmp) {
        self.jump(src, to, LeaveTry)
        return
    }

    /* the jump starts in the finally body, find the enclosing finally */
    ph := self.parentHandlerNode(hb)
    for n := 0; ph != hb && self.isCatch(ph); n++ {
        if n > len(self.ehs) {
            invariant(hb, "exception handlers protect each other in a cycle")
        }
        ph = self.parentHandlerNode(ph)
    }

    /* otherwise the jump exits through the end of this finally handler */
    if self.isFinally(ph) && !self.nodes[ph].handler.Try.Contains(to) {
        self.jump(src, to, LeaveTry)
    } else {
        ef := self.nodes[hb].endFinally
        self.link(src, ef, Normal)
        self.jump(ef, to, Normal)
    }
}
