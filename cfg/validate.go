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

    `github.com/hashicorp/go-multierror`
)

// Validate checks the structural properties every built graph satisfies, and
// the dominance properties once dominance has been computed. All violations
// are reported together.
func (self *Graph) Validate() error {
    var err *multierror.Error
    fail := func(format string, args ...interface{}) {
        err = multierror.Append(err, InvariantError{Node: NoNode, Reason: fmt.Sprintf(format, args...)})
    }

    /* the fixed nodes */
    if len(self.EntryPoint().out) == 0 {
        fail("entry point has no outgoing edge")
    }

    /* edges must be registered at both ends, and no leave edge survives */
    for _, p := range self.nodes {
        for _, e := range p.out {
            if e.Type == LeaveTry {
                fail("leave edge %s was not resolved", e)
            }
            if !containsEdge(self.nodes[e.Target].in, e) {
                fail("edge %s is missing from the incoming edges of its target", e)
            }
        }
    }

    /* blocks never overlap; copies share the ranges of their origins */
    owner := make(map[int]NodeID)
    for _, p := range self.nodes {
        if p.kind != NormalBlock || p.copyFrom != NoNode {
            continue
        }
        for v := p.start; v != nil && v.Offset <= p.end.Offset; v = v.Next {
            if q, ok := owner[v.Offset]; ok {
                fail("instruction at offset %d belongs to both #%d and #%d", v.Offset, q, p.id)
            } else {
                owner[v.Offset] = p.id
            }
        }
    }

    /* dominance, if computed */
    if self.hasDominance() {
        if e := self.validateDominance(fail); e != nil {
            err = multierror.Append(err, e)
        }
    }

    /* combine all the errors */
    return err.ErrorOrNil()
}

func (self *Graph) hasDominance() bool {
    for _, p := range self.nodes {
        if p.idom != NoNode {
            return true
        }
    }
    return false
}

func (self *Graph) validateDominance(fail func(string, ...interface{})) (err error) {
    defer rescue(&err)
    entry := self.EntryPoint()

    /* the entry point has no dominator */
    if entry.idom != NoNode {
        fail("entry point has immediate dominator #%d", entry.idom)
    }

    /* every chain ends at the entry point */
    for _, p := range self.nodes {
        if p.IsReachable() && !self.Dominates(entry.id, p.id) {
            fail("dominator chain of #%d does not reach the entry point", p.id)
        }
    }

    /* dominance is antisymmetric */
    for _, a := range self.nodes {
        for _, b := range a.children {
            if self.Dominates(b, a.id) {
                fail("#%d and #%d dominate each other", a.id, b)
            }
        }
    }

    /* no node is in its own frontier */
    for _, p := range self.nodes {
        for _, v := range p.frontier {
            if v == p.id {
                fail("#%d is in its own dominance frontier", p.id)
            }
        }
    }

    /* unreachable nodes are not part of the tree */
    for _, p := range self.nodes {
        if !p.IsReachable() && len(p.children) != 0 {
            fail("unreachable node #%d has dominator tree children", p.id)
        }
    }
    return nil
}

func containsEdge(edges []*Edge, e *Edge) bool {
    for _, v := range edges {
        if v == e {
            return true
        }
    }
    return false
}
