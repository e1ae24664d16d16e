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
    `fmt`

    `github.com/cloudwego/flowgraph/ir`
)

// NodeID is the position of a node in its graph's arena.
type NodeID int

const NoNode NodeID = -1

type NodeType uint8

const (
    EntryPoint NodeType = iota
    RegularExit
    ExceptionalExit
    NormalBlock
    CatchHandler
    FinallyHandler
    EndFinallyNode
)

func (self NodeType) String() string {
    switch self {
        case EntryPoint      : return "EntryPoint"
        case RegularExit     : return "RegularExit"
        case ExceptionalExit : return "ExceptionalExit"
        case NormalBlock     : return "Normal"
        case CatchHandler    : return "CatchHandler"
        case FinallyHandler  : return "FinallyHandler"
        case EndFinallyNode  : return "EndFinally"
        default              : return fmt.Sprintf("NodeType(%d)", uint8(self))
    }
}

// Node is a vertex of the control flow graph. Which of the optional fields
// are meaningful depends on Type: Start and End for NormalBlock nodes,
// ExceptionHandler for handler nodes, EndFinally for FinallyHandler nodes.
type Node struct {
    id         NodeID
    kind       NodeType
    offset     int
    start      *ir.Instr
    end        *ir.Instr
    handler    *ir.ExceptionHandler
    endFinally NodeID
    copyFrom   NodeID
    idom       NodeID
    children   []NodeID
    frontier   []NodeID
    out        []*Edge
    in         []*Edge
}

func newNode(id NodeID, kind NodeType, offset int) *Node {
    return &Node {
        id         : id,
        kind       : kind,
        offset     : offset,
        endFinally : NoNode,
        copyFrom   : NoNode,
        idom       : NoNode,
    }
}

// NewNode creates one of the nodes that carry no payload: EntryPoint,
// RegularExit, ExceptionalExit or EndFinally.
func NewNode(id NodeID, kind NodeType, offset int) *Node {
    switch kind {
        case EntryPoint, RegularExit, ExceptionalExit, EndFinallyNode : return newNode(id, kind, offset)
        case NormalBlock, CatchHandler, FinallyHandler                : panic("cfg: node type " + kind.String() + " requires a payload")
        default                                                       : panic("cfg: invalid node type " + kind.String())
    }
}

// NewBlockNode creates a basic block covering the instructions in [start, end].
func NewBlockNode(id NodeID, start *ir.Instr, end *ir.Instr) *Node {
    p := newNode(id, NormalBlock, start.Offset)
    p.start = start
    p.end = end
    return p
}

// NewHandlerNode creates the node of an exception handler. endFinally must be
// the paired EndFinally node of finally handlers, and NoNode for catch handlers.
func NewHandlerNode(id NodeID, eh *ir.ExceptionHandler, endFinally NodeID) *Node {
    var p *Node
    var t NodeType

    /* select the node type */
    if eh.IsFinally() {
        t = FinallyHandler
    } else {
        t = CatchHandler
    }

    /* construct the node */
    p = newNode(id, t, eh.Handler.First.Offset)
    p.handler = eh
    p.endFinally = endFinally
    return p
}

func (self *Node) ID() NodeID                            { return self.id }
func (self *Node) BlockIndex() int                       { return int(self.id) }
func (self *Node) Type() NodeType                        { return self.kind }
func (self *Node) Offset() int                           { return self.offset }
func (self *Node) Start() *ir.Instr                      { return self.start }
func (self *Node) End() *ir.Instr                        { return self.end }
func (self *Node) ExceptionHandler() *ir.ExceptionHandler { return self.handler }
func (self *Node) EndFinally() NodeID                    { return self.endFinally }
func (self *Node) CopyFrom() NodeID                      { return self.copyFrom }
func (self *Node) ImmediateDominator() NodeID            { return self.idom }
func (self *Node) DominatorTreeChildren() []NodeID       { return self.children }
func (self *Node) DominanceFrontier() []NodeID           { return self.frontier }
func (self *Node) Outgoing() []*Edge                     { return self.out }
func (self *Node) Incoming() []*Edge                     { return self.in }

func (self *Node) IsCopy() bool {
    return self.copyFrom != NoNode
}

// IsReachable is meaningful only after dominance has been computed.
func (self *Node) IsReachable() bool {
    return self.kind == EntryPoint || self.idom != NoNode
}

// Contains reports whether the instruction lies in this block.
func (self *Node) Contains(p *ir.Instr) bool {
    return self.kind == NormalBlock && self.start.Offset <= p.Offset && p.Offset < self.end.EndOffset()
}

func (self *Node) Successors() []NodeID {
    ret := make([]NodeID, 0, len(self.out))
    for _, e := range self.out {
        ret = append(ret, e.Target)
    }
    return ret
}

func (self *Node) Predecessors() []NodeID {
    ret := make([]NodeID, 0, len(self.in))
    for _, e := range self.in {
        ret = append(ret, e.Source)
    }
    return ret
}

func (self *Node) String() string {
    var s string
    var c string

    /* node payload */
    switch self.kind {
        case NormalBlock    : s = fmt.Sprintf("#%d: Normal [%d, %d]", self.id, self.start.Offset, self.end.Offset)
        case CatchHandler   : fallthrough
        case FinallyHandler : s = fmt.Sprintf("#%d: %s %s", self.id, self.kind, self.handler)
        default             : s = fmt.Sprintf("#%d: %s", self.id, self.kind)
    }

    /* copies refer to their origin */
    if self.copyFrom != NoNode {
        c = fmt.Sprintf(" (copy of #%d)", self.copyFrom)
    }

    /* combine them together */
    return s + c
}
