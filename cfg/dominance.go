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
    `context`
    `sort`
    `sync/atomic`

    `github.com/bits-and-blooms/bitset`
)

// ComputeDominance computes the immediate dominator of every node reachable
// from the entry point, and rebuilds the dominator tree. Unreachable nodes
// are left without an immediate dominator. The context is checked once per
// iteration; a cancelled computation leaves the graph in an undefined state.
func (self *Graph) ComputeDominance(ctx context.Context) (err error) {
    defer rescue(&err)
    entry := self.EntryPoint()
    self.dom = false
    atomic.AddUint64(&DominanceRuns, 1)

    /* start from scratch */
    for _, p := range self.nodes {
        p.idom = NoNode
        p.children = nil
        p.frontier = nil
    }

    /* the entry point dominates itself during computation */
    changed := true
    path := bitset.New(uint(len(self.nodes)))
    visited := bitset.New(uint(len(self.nodes)))
    entry.idom = entry.id

    /* iterate until a fixed point is reached */
    for changed {
        if err = ctx.Err(); err != nil {
            atomic.AddUint64(&CancelledCount, 1)
            return cancelError{cause: err}
        }

        /* one pass in pre-order */
        changed = false
        atomic.AddUint64(&DominancePass, 1)
        visited.ClearAll()
        self.preOrder(entry.id, visited, func(p *Node) {
            if p != entry && self.updateDominator(p, visited, path) {
                changed = true
            }
        })
    }

    /* remove the sentinel */
    entry.idom = NoNode

    /* rebuild the dominator tree */
    for _, p := range self.nodes {
        if p.idom != NoNode {
            q := self.nodes[p.idom]
            q.children = append(q.children, p.id)
        }
    }

    /* dominance is now up to date */
    self.dom = true
    return nil
}

func (self *Graph) updateDominator(p *Node, visited *bitset.BitSet, path *bitset.BitSet) bool {
    idom := NoNode

    /* start with the first visited predecessor */
    for _, e := range p.in {
        if e.Source != p.id && visited.Test(uint(e.Source)) {
            idom = e.Source
            break
        }
    }

    /* the node was reached through one of them */
    if idom == NoNode {
        invariant(p.id, "could not compute new immediate dominator")
    }

    /* intersect with every predecessor that has been processed */
    for _, e := range p.in {
        if e.Source != p.id && self.nodes[e.Source].idom != NoNode {
            idom = self.commonDominator(e.Source, idom, path)
        }
    }

    /* check for changes */
    if p.idom == idom {
        return false
    } else {
        p.idom = idom
        return true
    }
}

// dominatorChain calls fn for a and each of its dominators, stopping when fn
// returns false or the chain ends. A chain that loops back on itself breaks
// the invariants of the dominator tree.
func (self *Graph) dominatorChain(a NodeID, fn func(id NodeID) bool) {
    for n := 0; a != NoNode; n++ {
        if n > len(self.nodes) {
            invariant(a, "dominator chain does not terminate")
        }

        /* stop if requested */
        if !fn(a) {
            return
        }

        /* the entry point is its own dominator during computation */
        if next := self.nodes[a].idom; next == a {
            return
        } else {
            a = next
        }
    }
}

func (self *Graph) commonDominator(a NodeID, b NodeID, path *bitset.BitSet) NodeID {
    ret := NoNode
    path.ClearAll()

    /* mark the dominators of a */
    self.dominatorChain(a, func(id NodeID) bool {
        path.Set(uint(id))
        return true
    })

    /* find the first dominator of b on that path */
    self.dominatorChain(b, func(id NodeID) bool {
        if !path.Test(uint(id)) {
            return true
        } else {
            ret = id
            return false
        }
    })

    /* both chains end at the entry point */
    if ret == NoNode {
        invariant(a, "no common dominator with #%d", b)
    }
    return ret
}

// FindCommonDominator returns the nearest node that dominates both a and b.
func (self *Graph) FindCommonDominator(a NodeID, b NodeID) (id NodeID, err error) {
    if self.Node(a) == nil || self.Node(b) == nil {
        return NoNode, precondition("node #%d or #%d does not exist", a, b)
    }

    /* walk the dominator chains */
    defer rescue(&err)
    return self.commonDominator(a, b, bitset.New(uint(len(self.nodes)))), nil
}

// Dominates reports whether a dominates b. Every node dominates itself.
func (self *Graph) Dominates(a NodeID, b NodeID) bool {
    ret := false
    if self.Node(a) == nil || self.Node(b) == nil {
        return false
    }

    /* walk up from b */
    self.dominatorChain(b, func(id NodeID) bool {
        ret = id == a
        return !ret
    })
    return ret
}

// ComputeDominanceFrontier computes the dominance frontier of every reachable
// node. ComputeDominance must have completed successfully since the last
// change to the graph. A node is never part of its own frontier.
func (self *Graph) ComputeDominanceFrontier() error {
    if !self.dom {
        return precondition("dominance has not been computed")
    }

    /* scratch set for deduplication */
    seen := bitset.New(uint(len(self.nodes)))
    entry := self.EntryPoint()

    /* clear the previous results */
    for _, p := range self.nodes {
        p.frontier = nil
    }

    /* bottom-up over the dominator tree */
    self.dominatorTreePostOrder(entry.id, func(p *Node) {
        var df []NodeID
        seen.ClearAll()

        /* adds a node to the frontier */
        add := func(id NodeID) {
            if id != p.id && !seen.Test(uint(id)) {
                seen.Set(uint(id))
                df = append(df, id)
            }
        }

        /* successors that are not dominated by this node */
        for _, e := range p.out {
            if self.nodes[e.Target].idom != p.id {
                add(e.Target)
            }
        }

        /* frontiers of the children that escape this node */
        for _, c := range p.children {
            for _, v := range self.nodes[c].frontier {
                if self.nodes[v].idom != p.id {
                    add(v)
                }
            }
        }

        /* sort by block index */
        sort.Slice(df, func(i int, j int) bool { return df[i] < df[j] })
        p.frontier = df
    })
    return nil
}
