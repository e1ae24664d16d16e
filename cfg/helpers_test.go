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
    `sort`
    `strings`
    `testing`

    `github.com/cloudwego/flowgraph/ir`
    `github.com/oleiade/lane`
    `github.com/stretchr/testify/require`
)

func build(t *testing.T, p ir.Program, mode FinallyMode) *Graph {
    g, err := BuildGraph(p.Instrs, p.Handlers, Config{FinallyMode: mode})
    require.NoError(t, err)
    require.NoError(t, g.Validate())
    return g
}

func dominance(t *testing.T, g *Graph) {
    require.NoError(t, g.ComputeDominance(ctx))
    require.NoError(t, g.ComputeDominanceFrontier())
    require.NoError(t, g.Validate())
}

func edges(g *Graph) []string {
    var ret []string
    for _, e := range g.Edges() {
        ret = append(ret, e.String())
    }
    sort.Strings(ret)
    return ret
}

func edge(src NodeID, dst NodeID, kind JumpType) string {
    return (&Edge{Source: src, Target: dst, Type: kind}).String()
}

func hasEdge(g *Graph, src NodeID, dst NodeID, kind JumpType) bool {
    for _, e := range g.Node(src).Outgoing() {
        if e.Target == dst && e.Type == kind {
            return true
        }
    }
    return false
}

func idoms(g *Graph) []NodeID {
    ret := make([]NodeID, g.Len())
    for i, p := range g.Nodes() {
        ret[i] = p.ImmediateDominator()
    }
    return ret
}

func dumpnode(p *Node) string {
    var buf []string
    if p.Type() == NormalBlock {
        for v := p.Start(); v != nil && v.Offset <= p.End().Offset; v = v.Next {
            buf = append(buf, fmt.Sprintf(`%06x    %s\l`, v.Offset, v))
        }
    }
    ret := p.String() + `\l` + strings.Join(buf, "")
    return strings.ReplaceAll(ret, `"`, `\"`)
}

func cfgdot(g *Graph) string {
    q := lane.NewQueue()
    m := map[NodeID]bool{entryPoint: true}
    buf := []string {
        "digraph CFG {",
        `    graph [ fontname = "monospace" ]`,
        `    node [ fontname = "monospace", shape = "box" ]`,
        `    edge [ fontname = "monospace" ]`,
        fmt.Sprintf(`    N_%d [ label = "%s" ]`, entryPoint, dumpnode(g.EntryPoint())),
    }
    for q.Enqueue(entryPoint); !q.Empty(); {
        p := g.Node(q.Dequeue().(NodeID))
        for _, e := range p.Outgoing() {
            if !m[e.Target] {
                m[e.Target] = true
                buf = append(buf, fmt.Sprintf(`    N_%d [ label = "%s" ]`, e.Target, dumpnode(g.Node(e.Target))))
                q.Enqueue(e.Target)
            }
            tag := ""
            switch e.Type {
                case LeaveTry               : tag = ` [ color = "red" ]`
                case EndFinally             : tag = ` [ color = "blue" ]`
                case JumpToExceptionHandler : tag = ` [ style = "dashed" ]`
            }
            buf = append(buf, fmt.Sprintf(`    N_%d -> N_%d%s`, e.Source, e.Target, tag))
        }
    }
    return strings.Join(append(buf, "}"), "\n")
}

func TestGraph_Dot(t *testing.T) {
    p := ir.CreateBuilder()
    p.LOAD(0)
    p.IFEQ("else")
    p.RETURN()
    p.Label("else")
    p.ATHROW()
    g := build(t, p.Build(), TransformLeaveEdges)
    dot := cfgdot(g)
    require.Contains(t, dot, "digraph CFG {")
    require.Contains(t, dot, "N_3 -> N_5")
    require.Contains(t, dot, `N_5 -> N_2 [ style = "dashed" ]`)
    t.Log("\n" + dot)
}
