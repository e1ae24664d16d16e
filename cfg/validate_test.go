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
    `testing`

    `github.com/cloudwego/flowgraph/ir`
    `github.com/hashicorp/go-multierror`
    `github.com/pkg/errors`
    `github.com/stretchr/testify/require`
)

func TestValidate_Structure(t *testing.T) {
    p := ir.CreateBuilder()
    p.CONST(1)
    p.INVOKE(2)
    p.RETURN()
    prog := p.Build()

    /* two blocks sharing an instruction, and an unresolved leave edge */
    nodes := append(fixedNodes(),
        NewBlockNode(3, prog.Instrs[0], prog.Instrs[1]),
        NewBlockNode(4, prog.Instrs[1], prog.Instrs[2]),
    )
    g, err := NewGraph(nodes)
    require.NoError(t, err)
    _, err = g.AddEdge(3, 4, LeaveTry)
    require.NoError(t, err)

    /* an edge the target does not know about */
    nodes[4].out = append(nodes[4].out, &Edge{Source: 4, Target: 1, Type: Normal})

    err = g.Validate()
    require.Error(t, err)
    var me *multierror.Error
    require.True(t, errors.As(err, &me))
    require.Len(t, me.Errors, 4, "%v", err)
    require.Contains(t, err.Error(), "entry point has no outgoing edge")
    require.Contains(t, err.Error(), "leave edge #3 -> #4 (LeaveTry) was not resolved")
    require.Contains(t, err.Error(), "edge #4 -> #1 (Normal) is missing from the incoming edges of its target")
    require.Contains(t, err.Error(), "instruction at offset 2 belongs to both #3 and #4")

    var ie InvariantError
    require.True(t, errors.As(me.Errors[0], &ie))
}

func TestValidate_Dominance(t *testing.T) {
    g := build(t, diamond(), TransformLeaveEdges)
    dominance(t, g)

    /* break the results on purpose */
    g.Node(4).frontier = append(g.Node(4).frontier, 4)
    err := g.Validate()
    require.Error(t, err)
    require.Contains(t, err.Error(), "#4 is in its own dominance frontier")

    /* a cycle in the dominator chains */
    g.EntryPoint().idom = 3
    err = g.Validate()
    require.Error(t, err)
    require.Contains(t, err.Error(), "entry point has immediate dominator #3")
    require.Contains(t, err.Error(), "dominator chain does not terminate")
}

func TestValidate_CopiesMayOverlap(t *testing.T) {
    g := build(t, tryFinally(), CopyFinallyBlocks)
    require.True(t, g.Node(8).IsCopy())
    require.Equal(t, g.Node(4).Start(), g.Node(8).Start())
    require.NoError(t, g.Validate())
}
