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

// Package flowgraph builds control flow graphs of bytecode method bodies,
// with exceptional flow, try/finally resolution and dominance information.
package flowgraph

import (
    `context`
    `sync`

    `github.com/bytedance/gopkg/util/gopool`
    `github.com/cloudwego/flowgraph/cfg`
    `github.com/cloudwego/flowgraph/internal/opts`
    `github.com/cloudwego/flowgraph/ir`
    `github.com/hashicorp/go-multierror`
    `github.com/pkg/errors`
)

// Build constructs the control flow graph of p, and computes the dominator
// tree and dominance frontiers unless disabled with WithDominance.
func Build(p ir.Program, options ...Option) (*cfg.Graph, error) {
    return BuildContext(context.Background(), p, options...)
}

// BuildContext is like Build, but the dominance computation can be cancelled
// through ctx, in which case the returned error matches ErrCancelled.
func BuildContext(ctx context.Context, p ir.Program, options ...Option) (*cfg.Graph, error) {
    o := opts.GetDefaultOptions()
    for _, fn := range options {
        fn(&o)
    }
    return build(ctx, p, &o)
}

// BuildAll builds the graphs of independent method bodies concurrently. The
// graphs are returned in the order of progs; failed entries are nil and
// their errors are combined into the returned error.
func BuildAll(ctx context.Context, progs []ir.Program, options ...Option) ([]*cfg.Graph, error) {
    var wg sync.WaitGroup
    var err *multierror.Error

    /* parse the options */
    o := opts.GetDefaultOptions()
    for _, fn := range options {
        fn(&o)
    }

    /* nothing to build */
    if len(progs) == 0 {
        return nil, nil
    }

    /* every program gets a private graph */
    ret := make([]*cfg.Graph, len(progs))
    errs := make([]error, len(progs))
    pool := gopool.NewPool("flowgraph", int32(o.Workers(len(progs))), gopool.NewConfig())

    /* build all the programs */
    for i := range progs {
        i := i
        wg.Add(1)
        pool.CtxGo(ctx, func() {
            defer wg.Done()
            defer rescue(&errs[i])
            ret[i], errs[i] = build(ctx, progs[i], &o)
        })
    }

    /* wait for all the builds */
    wg.Wait()
    for i, e := range errs {
        if e != nil {
            err = multierror.Append(err, errors.WithMessagef(e, "program %d", i))
        }
    }

    /* combine the errors */
    return ret, err.ErrorOrNil()
}

func build(ctx context.Context, p ir.Program, o *opts.Options) (*cfg.Graph, error) {
    g, err := cfg.BuildGraph(p.Instrs, p.Handlers, config(o))
    if err != nil {
        return nil, err
    }

    /* dominance is optional */
    if o.SkipDominance {
        return g, nil
    }

    /* compute the dominator tree and the frontiers */
    if err = g.ComputeDominance(ctx); err != nil {
        return nil, err
    }

    /* the frontiers depend on the dominator tree */
    if err = g.ComputeDominanceFrontier(); err != nil {
        return nil, err
    }
    return g, nil
}

func config(o *opts.Options) cfg.Config {
    ret := cfg.Config{Logger: &o.Logger}
    if o.CopyFinallyBlocks {
        ret.FinallyMode = cfg.CopyFinallyBlocks
    }
    return ret
}

func rescue(ep *error) {
    if val := recover(); val != nil {
        if err, ok := val.(error); ok {
            *ep = errors.WithStack(err)
        } else {
            *ep = errors.Errorf("flowgraph: panic: %v", val)
        }
    }
}
