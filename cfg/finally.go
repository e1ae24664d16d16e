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
    `sync/atomic`

    `github.com/cloudwego/flowgraph/ir`
    `github.com/oleiade/lane`
)

// leaveEdges returns the LeaveTry edges of every block, scanning the arena
// backwards.
func (self *GraphBuilder) leaveEdges() []*Edge {
    var ret []*Edge
    for i := len(self.nodes) - 1; i >= 0; i-- {
        if p := self.nodes[i]; p.end != nil {
            for _, e := range p.out {
                if e.Type == LeaveTry {
                    ret = append(ret, e)
                }
            }
        }
    }
    return ret
}

// leaveFinally resolves the finally handler a leave from the instruction has
// to run first, or the exceptional exit if there is none.
func (self *GraphBuilder) leaveFinally(end *ir.Instr) NodeID {
    hb := self.innermostHandlerBlock(end.Offset, false)
    fb := self.innermostFinallyNode(end.Offset)

    /* inside a handler body, use the finally handler next to it */
    if hb != fb && self.nodes[hb].handler != nil {
        fb = self.adjacentFinallyNode(hb)
    }

    /* must be a finally handler, or nothing at all */
    if fb != exceptionalExit && !self.isFinally(fb) {
        invariant(fb, "leave resolved to a %s", self.nodes[fb].kind)
    }
    return fb
}

// targetAddress is the instruction a leave edge finally lands on.
func (self *GraphBuilder) targetAddress(id NodeID) *ir.Instr {
    if p := self.nodes[id]; p.start != nil {
        return p.start
    } else if p.handler != nil {
        return p.handler.Handler.First
    } else {
        return nil
    }
}

func (self *GraphBuilder) transformLeaveEdges() {
    for _, e := range self.leaveEdges() {
        self.transformLeaveEdge(e)
    }
}

func (self *GraphBuilder) transformLeaveEdge(e *Edge) {
    src := e.Source
    end := self.nodes[src].end
    fb := self.leaveFinally(end)

    /* remove the original edge */
    unlink(self.nodes, e)
    atomic.AddUint64(&LeaveCount, 1)
    self.log.Debug().Int("from", int(src)).Int("to", int(e.Target)).Int("finally", int(fb)).Msg("transform leave edge")

    /* nothing to run on the way out */
    if fb == exceptionalExit {
        self.link(src, fb, Normal)
        return
    }

    /* enter the finally handler, or finish it when leaving from its body */
    if self.nodes[fb].handler.Handler.Contains(end) {
        self.link(src, self.nodes[fb].endFinally, Normal)
    } else {
        self.link(src, fb, Normal)
    }

    /* run every enclosing finally handler that does not protect the target */
    if to := self.targetAddress(e.Target); to != nil {
        for n := 0; ; n++ {
            if n > len(self.ehs) {
                invariant(src, "finally handlers are chained in a cycle")
            }

            /* find the next handler to run */
            ph := self.nextFinallyNode(fb, to)
            if !self.isFinally(ph) || self.nodes[ph].handler.Try.Contains(to) {
                break
            }

            /* continue from the end of this finally into the next one */
            self.link(self.nodes[fb].endFinally, ph, EndFinally)
            fb = ph
        }
    }

    /* finally, continue to the target */
    if fb != e.Target {
        ef := self.nodes[fb].endFinally
        if ef != e.Target {
            self.link(ef, e.Target, EndFinally)
        }
        self.link(self.findNode(self.nodes[fb].handler.Handler.Last), ef, Normal)
    }
}

// nextFinallyNode walks up from the finally handler fb, skipping catch
// handlers that do not protect the target.
func (self *GraphBuilder) nextFinallyNode(fb NodeID, to *ir.Instr) NodeID {
    ph := self.parentHandlerNode(fb)
    for n := 0; self.isCatch(ph) && !self.nodes[ph].handler.Try.Contains(to); n++ {
        if n > len(self.ehs) {
            invariant(fb, "exception handlers protect each other in a cycle")
        }
        if ph = self.adjacentFinallyNode(ph); ph == fb {
            ph = self.parentHandlerNode(fb)
        }
    }
    return ph
}

// copyFinallyBlocksIntoLeaveEdges replaces every leave edge with a private
// copy of the finally handler subgraph. All leave edges are detached before
// copying, so no copy ever inherits one.
func (self *GraphBuilder) copyFinallyBlocksIntoLeaveEdges() {
    edges := self.leaveEdges()
    fbs := make([]NodeID, len(edges))

    /* resolve the finally handlers and detach the edges */
    for i, e := range edges {
        fbs[i] = self.leaveFinally(self.nodes[e.Source].end)
        unlink(self.nodes, e)
    }

    /* copy the finally handlers */
    for i, e := range edges {
        self.copyLeaveEdge(e, fbs[i])
    }
}

func (self *GraphBuilder) copyLeaveEdge(e *Edge, fb NodeID) {
    if atomic.AddUint64(&LeaveCount, 1); fb == exceptionalExit {
        self.link(e.Source, e.Target, Normal)
        return
    }

    /* the finally body must flow into its end */
    ef := self.nodes[fb].endFinally
    self.link(self.findNode(self.nodes[fb].handler.Handler.Last), ef, Normal)

    /* duplicate the subgraph and jump into the copy */
    n := len(self.nodes)
    cp := self.copyFinallySubGraph(fb, ef, e.Target)
    self.link(e.Source, cp, Normal)

    /* update the statistics */
    atomic.AddUint64(&CopyCount, uint64(len(self.nodes) - n))
    self.log.Debug().Int("from", int(e.Source)).Int("to", int(e.Target)).Int("finally", int(fb)).Int("copy", int(cp)).Msg("copy finally block")
}

// copyFinallySubGraph copies every node that reaches end backwards, up to
// start, redirecting the copies of the edges into end to newEnd. Copies made
// earlier for leaves nested in the finally body are part of that body too.
// Returns the copy of start.
func (self *GraphBuilder) copyFinallySubGraph(start NodeID, end NodeID, newEnd NodeID) NodeID {
    var olds []NodeID
    var stack = lane.NewStack()
    var remap = make(map[NodeID]NodeID)

    /* push in reverse, so the first predecessor is copied first */
    push := func(p *Node) {
        for i := len(p.in) - 1; i >= 0; i-- {
            stack.Push(p.in[i].Source)
        }
    }

    /* collect the nodes with DFS */
    for push(self.nodes[end]); !stack.Empty(); {
        id := stack.Pop().(NodeID)
        if id == end || id == newEnd {
            invariant(id, "unexpected cycle involving finally constructs")
        }

        /* already copied */
        if _, ok := remap[id]; ok {
            continue
        }

        /* copy the node */
        old := self.nodes[id]
        cp := self.add(self.copyNode(old))
        remap[id] = cp.id
        olds = append(olds, id)

        /* stop at the handler entry */
        if id != start {
            push(old)
        }
    }

    /* the handler entry must have been reached */
    if _, ok := remap[start]; !ok {
        invariant(start, "finally handler does not reach its end")
    }

    /* maps an old node to its copy */
    remapped := func(id NodeID) NodeID {
        if id == end {
            return newEnd
        } else if v, ok := remap[id]; ok {
            return v
        } else {
            return id
        }
    }

    /* reconstruct the edges between the copies */
    for _, id := range olds {
        cp := self.nodes[remap[id]]
        for _, e := range append([]*Edge(nil), self.nodes[id].out...) {
            self.link(cp.id, remapped(e.Target), e.Type)
        }

        /* nested finally handlers pair with the copy of their end */
        if v, ok := remap[cp.endFinally]; ok && cp.kind == FinallyHandler {
            cp.endFinally = v
        }
    }

    /* the copy of the handler entry */
    return remap[start]
}

func (self *GraphBuilder) copyNode(p *Node) *Node {
    var ret *Node
    var org NodeID

    /* only the contents of a handler can be part of a finally subgraph */
    switch p.kind {
        case NormalBlock    : ret = NewBlockNode(self.nextID(), p.start, p.end)
        case CatchHandler   : fallthrough
        case FinallyHandler : ret = NewHandlerNode(self.nextID(), p.handler, p.endFinally)
        case EndFinallyNode : ret = newNode(self.nextID(), EndFinallyNode, p.offset)
        default             : invariant(p.id, "cannot copy a %s node into a finally subgraph", p.kind)
    }

    /* always refer to the very first origin */
    if org = p.id; p.copyFrom != NoNode {
        org = p.copyFrom
    }

    /* mark as a copy */
    ret.copyFrom = org
    return ret
}
