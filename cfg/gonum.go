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
    `gonum.org/v1/gonum/graph/simple`
)

// Directed exports the graph for use with gonum's graph algorithms. Node IDs
// are kept as is. Parallel edges of different jump types collapse into one,
// and self loops are dropped since simple graphs cannot hold them.
func (self *Graph) Directed() *simple.DirectedGraph {
    g := simple.NewDirectedGraph()

    /* add all the nodes */
    for _, p := range self.nodes {
        g.AddNode(simple.Node(p.id))
    }

    /* add all the edges */
    for _, e := range self.Edges() {
        if e.Source != e.Target {
            g.SetEdge(g.NewEdge(simple.Node(e.Source), simple.Node(e.Target)))
        }
    }
    return g
}
