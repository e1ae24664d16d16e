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
    `github.com/bits-and-blooms/bitset`
    `github.com/oleiade/lane`
)

// preOrder visits every node reachable from root along successor edges, in
// depth-first pre-order. The visited set is marked before the action runs.
func (self *Graph) preOrder(root NodeID, visited *bitset.BitSet, action func(p *Node)) {
    st := lane.NewStack()
    pc := make([]int, len(self.nodes))

    /* visit the root */
    visited.Set(uint(root))
    action(self.nodes[root])

    /* traverse the graph with DFS */
    for st.Push(root); !st.Empty(); {
        id := st.Head().(NodeID)
        out := self.nodes[id].out

        /* find the next unvisited successor */
        for pc[id] < len(out) && visited.Test(uint(out[pc[id]].Target)) {
            pc[id]++
        }

        /* all the successors are visited, pop the current node */
        if pc[id] == len(out) {
            st.Pop()
            continue
        }

        /* visit the successor */
        next := out[pc[id]].Target
        visited.Set(uint(next))
        action(self.nodes[next])
        st.Push(next)
    }
}

// dominatorTreePostOrder visits the dominator tree rooted at root in
// post-order.
func (self *Graph) dominatorTreePostOrder(root NodeID, action func(p *Node)) {
    st := lane.NewStack()
    pc := make([]int, len(self.nodes))

    /* traverse the dominator tree */
    for st.Push(root); !st.Empty(); {
        p := self.nodes[st.Head().(NodeID)]

        /* descend into the next child */
        if pc[p.id] < len(p.children) {
            st.Push(p.children[pc[p.id]])
            pc[p.id]++
            continue
        }

        /* all the children are done */
        st.Pop()
        action(p)
    }
}
