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
    `fmt`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/flowgraph/ir`
    `github.com/davecgh/go-spew/spew`
    `github.com/pkg/errors`
    `github.com/stretchr/testify/require`
    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

func diamond() ir.Program {
    p := ir.CreateBuilder()
    p.LOAD(0)
    p.IFEQ("else")
    p.CONST(1)
    p.GOTO("join")
    p.Label("else")
    p.CONST(2)
    p.Label("join")
    p.RETURN()
    return p.Build()
}

func TestDominance_Diamond(t *testing.T) {
    g := build(t, diamond(), TransformLeaveEdges)
    dominance(t, g)
    require.Equal(t, []NodeID{NoNode, 6, 3, 0, 3, 3, 3}, idoms(g))
    require.Equal(t, []NodeID{3}, g.EntryPoint().DominatorTreeChildren())
    require.ElementsMatch(t, []NodeID{2, 4, 5, 6}, g.Node(3).DominatorTreeChildren())
    require.Equal(t, []NodeID{2, 6}, g.Node(4).DominanceFrontier())
    require.Equal(t, []NodeID{2, 6}, g.Node(5).DominanceFrontier())
    require.Equal(t, []NodeID{2}, g.Node(6).DominanceFrontier())
    require.Empty(t, g.Node(3).DominanceFrontier())
    require.True(t, g.Dominates(3, 6))
    require.True(t, g.Dominates(0, 6))
    require.True(t, g.Dominates(6, 6))
    require.False(t, g.Dominates(4, 6))
    require.False(t, g.Dominates(6, 3))
    require.False(t, g.Dominates(3, 42))

    /* nearest common dominators */
    id, err := g.FindCommonDominator(4, 5)
    require.NoError(t, err)
    require.Equal(t, NodeID(3), id)
    id, err = g.FindCommonDominator(4, 4)
    require.NoError(t, err)
    require.Equal(t, NodeID(4), id)
    id, err = g.FindCommonDominator(1, 0)
    require.NoError(t, err)
    require.Equal(t, NodeID(0), id)
    _, err = g.FindCommonDominator(4, 42)
    var pe PreconditionError
    require.True(t, errors.As(err, &pe), "%v", err)
}

func TestDominance_Unreachable(t *testing.T) {
    p := ir.CreateBuilder()
    p.RETURN()
    p.CONST(0)
    p.RETURN()
    g := build(t, p.Build(), TransformLeaveEdges)
    dominance(t, g)
    require.Equal(t, NodeID(3), g.Node(1).ImmediateDominator())
    require.Equal(t, NoNode, g.Node(4).ImmediateDominator())
    require.False(t, g.Node(4).IsReachable())
    require.True(t, g.EntryPoint().IsReachable())
    require.Empty(t, g.Node(4).DominatorTreeChildren())
    require.Empty(t, g.Node(4).DominanceFrontier())
    for _, n := range g.Nodes() {
        require.NotContains(t, n.DominatorTreeChildren(), NodeID(4))
    }
    require.False(t, g.Dominates(0, 4))
    require.True(t, g.Dominates(4, 4))
}

func TestDominance_Loop(t *testing.T) {
    p := ir.CreateBuilder()
    p.Label("loop")
    p.LOAD(0)
    p.IFEQ("exit")
    p.INVOKE(1)
    p.GOTO("loop")
    p.Label("exit")
    p.RETURN()
    g := build(t, p.Build(), TransformLeaveEdges)
    dominance(t, g)
    require.Equal(t, NodeID(3), g.Node(4).ImmediateDominator())
    require.Equal(t, NodeID(3), g.Node(5).ImmediateDominator())
    require.Equal(t, []NodeID{2, 3}, g.Node(4).DominanceFrontier())
    require.NotContains(t, g.Node(3).DominanceFrontier(), NodeID(3))
}

func TestDominance_Recompute(t *testing.T) {
    g := build(t, diamond(), TransformLeaveEdges)
    dominance(t, g)
    before := idoms(g)
    dominance(t, g)
    require.Equal(t, before, idoms(g))
    require.ElementsMatch(t, []NodeID{2, 4, 5, 6}, g.Node(3).DominatorTreeChildren())

    /* a new edge around the diamond moves the join up */
    _, err := g.AddEdge(0, 6, Normal)
    require.NoError(t, err)
    dominance(t, g)
    require.Equal(t, NodeID(0), g.Node(6).ImmediateDominator())
    require.Equal(t, NodeID(0), g.Node(2).ImmediateDominator())
    require.ElementsMatch(t, []NodeID{2, 3, 6}, g.EntryPoint().DominatorTreeChildren())
    require.Equal(t, []NodeID{2, 6}, g.Node(3).DominanceFrontier())
}

func TestDominance_Cancelled(t *testing.T) {
    g := build(t, diamond(), TransformLeaveEdges)
    cc, cancel := context.WithCancel(ctx)
    cancel()
    err := g.ComputeDominance(cc)
    require.Error(t, err)
    require.True(t, errors.Is(err, ErrCancelled))
    require.True(t, errors.Is(err, context.Canceled))
    require.Contains(t, err.Error(), ErrCancelled.Error())

    /* a cancelled run leaves nothing to compute frontiers from */
    var pe PreconditionError
    require.True(t, errors.As(g.ComputeDominanceFrontier(), &pe))
}

func TestDominance_FrontierRequiresDominance(t *testing.T) {
    var pe PreconditionError
    g := build(t, diamond(), TransformLeaveEdges)
    err := g.ComputeDominanceFrontier()
    require.True(t, errors.As(err, &pe), "%v", err)
    for _, p := range g.Nodes() {
        require.Empty(t, p.DominanceFrontier())
    }

    /* computed once dominance is known */
    require.NoError(t, g.ComputeDominance(ctx))
    require.NoError(t, g.ComputeDominanceFrontier())
    require.Equal(t, []NodeID{2, 6}, g.Node(4).DominanceFrontier())

    /* adding an edge makes the dominator tree stale */
    _, err = g.AddEdge(0, 6, Normal)
    require.NoError(t, err)
    require.True(t, errors.As(g.ComputeDominanceFrontier(), &pe))
}

// fakeProgram generates either a flat or a structured random method body.
func fakeProgram(f *gofakeit.Faker) ir.Program {
    if f.Bool() {
        return fakeFlatProgram(f)
    } else {
        return fakeNestedProgram(f)
    }
}

// fakeFlatProgram generates a random method body with an optional set of catch
// handlers placed after the main body. Every position has a "L<n>" label.
func fakeFlatProgram(f *gofakeit.Faker) ir.Program {
    n := f.Number(3, 24)
    p := ir.CreateBuilder()
    pc := 0

    /* emits a random instruction that never leaves its block */
    plain := func() {
        switch f.Number(0, 3) {
            case 0  : p.CONST(int64(f.Number(0, 100)))
            case 1  : p.LOAD(f.Number(0, 4))
            case 2  : p.STORE(f.Number(0, 4))
            default : p.INVOKE(f.Number(1, 9))
        }
    }

    /* random jump target in the main body */
    target := func() string {
        return fmt.Sprintf("L%d", f.Number(0, n - 1))
    }

    /* the main body */
    for ; pc < n - 1; pc++ {
        p.Label(fmt.Sprintf("L%d", pc))
        switch f.Number(0, 9) {
            case 0  : p.IFEQ(target())
            case 1  : p.IFNE(target())
            case 2  : p.GOTO(target())
            case 3  : p.ATHROW()
            case 4  : p.TABLESWITCH(0, target(), target(), target())
            case 5  : p.LOOKUPSWITCH(target(), []int32{1, 3}, target(), target())
            default : plain()
        }
    }

    /* always return at the end */
    p.Label(fmt.Sprintf("L%d", pc))
    p.RETURN()
    pc++

    /* the catch handlers */
    for i, m := 0, f.Number(0, 3); i < m; i++ {
        a := f.Number(0, n - 1)
        b := f.Number(a + 1, n)
        s := pc

        /* the handler body */
        for k := f.Number(0, 2); k > 0; k-- {
            p.Label(fmt.Sprintf("L%d", pc))
            plain()
            pc++
        }

        /* it either returns or jumps back */
        p.Label(fmt.Sprintf("L%d", pc))
        if f.Bool() {
            p.RETURN()
        } else {
            p.GOTO(target())
        }

        /* register the handler */
        pc++
        p.Catch(fmt.Sprintf("L%d", a), fmt.Sprintf("L%d", b), fmt.Sprintf("L%d", s), fmt.Sprintf("L%d", pc), f.Word())
    }

    /* the label past the end */
    p.Label(fmt.Sprintf("L%d", pc))
    return p.Build()
}

// fakeNestedProgram generates a structured method body made of nested and
// sibling try blocks, protected by a catch handler, a finally handler or both.
// Handler bodies are laid out inline and registered innermost first. Code in
// a finally body, however deeply nested, always reaches its end.
func fakeNestedProgram(f *gofakeit.Faker) ir.Program {
    var seq func(scope []string, depth int, strict bool)
    var try func(scope []string, depth int, strict bool)
    p := ir.CreateBuilder()
    id := 0

    /* unique labels */
    label := func() string {
        id++
        return fmt.Sprintf("S%d", id)
    }

    /* a sequence of statements, jumping anywhere in scope */
    seq = func(scope []string, depth int, strict bool) {
        lbs := make([]string, f.Number(1, 4) + 1)
        for i := range lbs {
            lbs[i] = label()
        }

        /* this sequence and the enclosing ones */
        targets := append(append([]string(nil), lbs...), scope...)
        target := func() string {
            return targets[f.Number(0, len(targets) - 1)]
        }

        /* unconditional transfers are not allowed in finally bodies */
        for _, lb := range lbs[:len(lbs) - 1] {
            p.Label(lb)
            switch n := f.Number(0, 9); {
                case n < 3 && depth < 3 : try(targets, depth + 1, strict)
                case n == 3             : p.IFEQ(target())
                case n == 4             : p.IFNE(target())
                case strict             : p.INVOKE(f.Number(1, 9))
                case n == 5             : p.GOTO(target())
                case n == 6             : p.ATHROW()
                case n == 7             : p.TABLESWITCH(0, target(), target())
                default                 : p.LOAD(f.Number(0, 4))
            }
        }

        /* the end of the sequence */
        p.Label(lbs[len(lbs) - 1])
    }

    /* 0: catch, 1: finally, 2: catch and finally on the same try block,
     * 3: a finally protecting both the try block and the catch body */
    try = func(scope []string, depth int, strict bool) {
        kind := f.Number(0, 3)
        tryL, catchL, finL, end := label(), label(), label(), label()

        /* the protected region */
        p.Label(tryL)
        seq(scope, depth, strict)
        if kind != 0 && f.Bool() {
            p.LEAVE(end)
        } else {
            p.GOTO(end)
        }

        /* the catch body */
        if kind != 1 {
            p.Label(catchL)
            p.STORE(f.Number(0, 4))
            seq(scope, depth, strict)
            p.GOTO(end)
        }

        /* the finally body never leaves by itself */
        if kind != 0 {
            p.Label(finL)
            seq(nil, depth, true)
            p.ENDFINALLY()
        }

        /* register the handlers */
        p.Label(end)
        switch kind {
            case 0: p.Catch(tryL, catchL, catchL, end, f.Word())
            case 1: p.Finally(tryL, finL, finL, end)
            case 2: p.Catch(tryL, catchL, catchL, finL, f.Word()); p.Finally(tryL, catchL, finL, end)
            case 3: p.Catch(tryL, catchL, catchL, finL, f.Word()); p.Finally(tryL, finL, finL, end)
        }
    }

    /* the method body */
    seq(nil, 0, false)
    p.RETURN()
    return p.Build()
}

func checkAgainstGonum(t *testing.T, g *Graph, msg string) {
    dt := flow.Dominators(simple.Node(entryPoint), g.Directed())
    for _, v := range g.Nodes() {
        want := NoNode
        if v.ID() != entryPoint {
            if d := dt.DominatorOf(int64(v.ID())); d != nil {
                want = NodeID(d.ID())
            }
        }
        require.Equal(t, want, v.ImmediateDominator(), "node #%d\n%s", v.ID(), msg)
    }
}

// finallyStats counts the finally handlers of a program, and those of them
// protecting code inside the body of another finally handler.
func finallyStats(prog ir.Program) (total int, nested int) {
    for _, a := range prog.Handlers {
        if !a.IsFinally() {
            continue
        }

        /* look for an enclosing finally body */
        total++
        for _, b := range prog.Handlers {
            if b.IsFinally() && b != a && b.Handler.ContainsBlock(a.Try) {
                nested++
                break
            }
        }
    }
    return
}

func TestDominance_RandomPrograms(t *testing.T) {
    var finally, nested, copies int
    for seed := int64(1); seed <= 200; seed++ {
        f := gofakeit.New(seed)
        prog := fakeProgram(f)
        nf, nn := finallyStats(prog)
        finally += nf
        nested += nn
        for _, mode := range []FinallyMode{TransformLeaveEdges, CopyFinallyBlocks} {
            g, err := BuildGraph(prog.Instrs, prog.Handlers, Config{FinallyMode: mode})
            require.NoError(t, err, "seed %d\n%s", seed, prog.Disassemble())
            require.Empty(t, g.EdgesOf(LeaveTry), "seed %d\n%s", seed, prog.Disassemble())
            require.NoError(t, g.ComputeDominance(ctx), "seed %d\n%s", seed, prog.Disassemble())
            require.NoError(t, g.ComputeDominanceFrontier(), "seed %d\n%s", seed, prog.Disassemble())
            require.NoError(t, g.Validate(), "seed %d\n%s", seed, prog.Disassemble())
            checkAgainstGonum(t, g, fmt.Sprintf("seed %d\n%s\n%s", seed, prog.Disassemble(), spew.Sdump(edges(g))))

            /* every node in a frontier has a predecessor dominated by the owner */
            for _, p := range g.Nodes() {
                for _, v := range p.DominanceFrontier() {
                    ok := false
                    for _, q := range g.Node(v).Predecessors() {
                        ok = ok || g.Dominates(p.ID(), q)
                    }
                    require.True(t, ok, "seed %d: #%d in DF(#%d)", seed, v, p.ID())
                    require.False(t, g.Dominates(p.ID(), v) && p.ID() != v, "seed %d: #%d strictly dominates #%d", seed, p.ID(), v)
                }
            }

            /* count the copied nodes */
            for _, p := range g.Nodes() {
                if p.IsCopy() {
                    copies++
                }
            }
        }
    }

    /* the generated programs do exercise the finally passes */
    require.NotZero(t, finally)
    require.NotZero(t, nested)
    require.NotZero(t, copies)
}
