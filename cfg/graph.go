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

// Graph owns an arena of nodes. The first three slots always hold the entry
// point, the regular exit and the exceptional exit, in that order.
type Graph struct {
    dom   bool
    nodes []*Node
}

// NewGraph wraps a node arena into a graph. Every node must sit at the arena
// position equal to its ID.
func NewGraph(nodes []*Node) (*Graph, error) {
    if len(nodes) < 3 {
        return nil, precondition("a graph requires at least 3 nodes, got %d", len(nodes))
    }

    /* check every node */
    for i, p := range nodes {
        if p == nil {
            return nil, precondition("node %d is nil", i)
        } else if p.id != NodeID(i) {
            return nil, precondition("node %d has block index %d", i, p.id)
        }
    }

    /* check for the fixed slots */
    for i, t := range [...]NodeType { EntryPoint, RegularExit, ExceptionalExit } {
        if nodes[i].kind != t {
            return nil, precondition("node %d must be %s, got %s", i, t, nodes[i].kind)
        }
    }

    /* all edges must stay inside the arena */
    for _, p := range nodes {
        for _, e := range p.out {
            if e == nil || e.Source != p.id || e.Target < 0 || int(e.Target) >= len(nodes) {
                return nil, precondition("node %d has a dangling outgoing edge", p.id)
            }
        }
    }

    /* construct the graph */
    return &Graph{nodes: nodes}, nil
}

func (self *Graph) Nodes() []*Node        { return self.nodes }
func (self *Graph) Len() int              { return len(self.nodes) }
func (self *Graph) EntryPoint() *Node      { return self.nodes[0] }
func (self *Graph) RegularExit() *Node     { return self.nodes[1] }
func (self *Graph) ExceptionalExit() *Node { return self.nodes[2] }

// Node returns the node with the given ID, or nil if there is no such node.
func (self *Graph) Node(id NodeID) *Node {
    if id < 0 || int(id) >= len(self.nodes) {
        return nil
    } else {
        return self.nodes[id]
    }
}

// AddEdge inserts an edge, returning the existing one if the source already
// has an outgoing edge with the same target and jump type. Any previously
// computed dominance information becomes stale.
func (self *Graph) AddEdge(src NodeID, dst NodeID, kind JumpType) (*Edge, error) {
    if self.Node(src) == nil {
        return nil, precondition("edge source #%d does not exist", src)
    } else if self.Node(dst) == nil {
        return nil, precondition("edge target #%d does not exist", dst)
    } else {
        self.dom = false
        return link(self.nodes, src, dst, kind), nil
    }
}

// Edges returns every edge of the graph, ordered by source node.
func (self *Graph) Edges() []*Edge {
    var ret []*Edge
    for _, p := range self.nodes {
        ret = append(ret, p.out...)
    }
    return ret
}

// EdgesOf returns all edges with the given jump type.
func (self *Graph) EdgesOf(kind JumpType) []*Edge {
    var ret []*Edge
    for _, p := range self.nodes {
        for _, e := range p.out {
            if e.Type == kind {
                ret = append(ret, e)
            }
        }
    }
    return ret
}
