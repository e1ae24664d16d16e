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
)

type JumpType uint8

const (
    // Normal is ordinary control flow.
    Normal JumpType = iota

    // LeaveTry jumps out of a protected region through one or more finally
    // handlers. It only exists until the finally pass has run.
    LeaveTry

    // EndFinally continues from the end of a finally handler to wherever
    // control was headed before the handler ran.
    EndFinally

    // JumpToExceptionHandler is the potential transfer to a handler when an
    // exception is thrown.
    JumpToExceptionHandler
)

func (self JumpType) String() string {
    switch self {
        case Normal                 : return "Normal"
        case LeaveTry               : return "LeaveTry"
        case EndFinally             : return "EndFinally"
        case JumpToExceptionHandler : return "JumpToExceptionHandler"
        default                     : return fmt.Sprintf("JumpType(%d)", uint8(self))
    }
}

type Edge struct {
    Source NodeID
    Target NodeID
    Type   JumpType
}

// Equal compares the end points only, the jump type is not part of an
// edge's identity.
func (self *Edge) Equal(other *Edge) bool {
    return other != nil && self.Source == other.Source && self.Target == other.Target
}

func (self *Edge) String() string {
    return fmt.Sprintf("#%d -> #%d (%s)", self.Source, self.Target, self.Type)
}

func link(nodes []*Node, src NodeID, dst NodeID, kind JumpType) *Edge {
    p := nodes[src]
    q := nodes[dst]

    /* check for existing edges */
    for _, e := range p.out {
        if e.Target == dst && e.Type == kind {
            return e
        }
    }

    /* create a new edge */
    e := &Edge {
        Source : src,
        Target : dst,
        Type   : kind,
    }

    /* add to both ends */
    p.out = append(p.out, e)
    q.in = append(q.in, e)
    return e
}

func unlink(nodes []*Node, e *Edge) {
    nodes[e.Source].out = removeEdge(nodes[e.Source].out, e)
    nodes[e.Target].in = removeEdge(nodes[e.Target].in, e)
}

func removeEdge(edges []*Edge, e *Edge) []*Edge {
    for i, v := range edges {
        if v == e {
            return append(edges[:i], edges[i + 1:]...)
        }
    }
    return edges
}
