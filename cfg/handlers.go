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
    `github.com/cloudwego/flowgraph/ir`
)

// narrower orders handlers by their protected ranges: a is narrower than b if
// its try block starts later, or starts at the same place and ends earlier.
func narrower(a *ir.ExceptionHandler, b *ir.ExceptionHandler) bool {
    if a == nil || b == nil {
        return false
    } else if a.Try.First.Offset > b.Try.First.Offset {
        return true
    } else {
        return a.Try.First.Offset == b.Try.First.Offset && a.Try.Last.Offset < b.Try.Last.Offset
    }
}

// narrowerBlock is the same order on arbitrary instruction ranges, except a
// block that starts later must also end inside b to be narrower.
func narrowerBlock(a ir.Block, b ir.Block) bool {
    if a.First.Offset > b.First.Offset {
        return a.Last.Offset < b.Last.EndOffset()
    } else {
        return a.First.Offset == b.First.Offset && a.Last.Offset < b.Last.Offset
    }
}

func anyHandler(_ *ir.ExceptionHandler) bool {
    return true
}

func finallyOnly(eh *ir.ExceptionHandler) bool {
    return eh.IsFinally()
}

func except(pred func(*ir.ExceptionHandler) bool, self *ir.ExceptionHandler) func(*ir.ExceptionHandler) bool {
    return func(eh *ir.ExceptionHandler) bool { return eh != self && pred(eh) }
}

// innermost returns the narrowest handler accepted by pred whose try block
// contains offset. Ties are broken by table order.
func (self *GraphBuilder) innermost(pred func(*ir.ExceptionHandler) bool, offset int) *ir.ExceptionHandler {
    var ret *ir.ExceptionHandler
    for _, eh := range self.ehs {
        if pred(eh) && eh.Try.ContainsOffset(offset) && (ret == nil || narrower(eh, ret)) {
            ret = eh
        }
    }
    return ret
}

// handlerNode maps a handler to its node, nil maps to the exceptional exit.
func (self *GraphBuilder) handlerNode(eh *ir.ExceptionHandler) NodeID {
    if eh == nil {
        return exceptionalExit
    } else if id, ok := self.hnodes[eh]; !ok {
        invariant(NoNode, "no node for exception handler %s", eh)
        return NoNode
    } else {
        return id
    }
}

func (self *GraphBuilder) innermostHandlerNode(offset int) NodeID {
    return self.handlerNode(self.innermost(anyHandler, offset))
}

func (self *GraphBuilder) innermostFinallyNode(offset int) NodeID {
    return self.handlerNode(self.innermost(finallyOnly, offset))
}

// innermostHandlerBlock finds the handler whose body contains the offset.
// When a try block containing the offset is narrower than that body, the
// handler protecting the try block is returned instead: the innermost finally
// handler, or any innermost handler when finally is set.
func (self *GraphBuilder) innermostHandlerBlock(offset int, finally bool) NodeID {
    var ret *ir.ExceptionHandler
    var blk *ir.Block

    /* scan the handler bodies */
    for _, eh := range self.ehs {
        if (!finally || eh.IsFinally()) && eh.Handler.ContainsOffset(offset) {
            if blk == nil || narrowerBlock(eh.Handler, *blk) {
                ret, blk = eh, &eh.Handler
            }
        }
    }

    /* a narrower protected region wins over the handler body */
    var inner *ir.ExceptionHandler
    if finally {
        inner = self.innermost(anyHandler, offset)
    } else {
        inner = self.innermost(finallyOnly, offset)
    }

    /* compare with the try block */
    if inner != nil && (blk == nil || narrowerBlock(inner.Try, *blk)) {
        ret = inner
    }

    /* map to the handler node */
    return self.handlerNode(ret)
}

// parentHandlerNode finds the handler that protects the whole body of the
// handler node id, or the exceptional exit if the body is not protected. A try
// block that only covers the beginning of the body does not count.
func (self *GraphBuilder) parentHandlerNode(id NodeID) NodeID {
    eh := self.nodes[id].handler
    if eh == nil {
        invariant(id, "%s is not an exception handler", self.nodes[id].kind)
    }

    /* the try block must enclose the entire handler body */
    return self.handlerNode(self.innermost(func(v *ir.ExceptionHandler) bool {
        return v != eh && v.Try.ContainsBlock(eh.Handler)
    }, eh.Handler.First.Offset))
}

// adjacentFinallyNode finds the finally handler that shares the try block of
// the handler node id.
func (self *GraphBuilder) adjacentFinallyNode(id NodeID) NodeID {
    return self.innermostFinallyNode(self.nodes[id].handler.Try.Last.Offset)
}

func (self *GraphBuilder) isFinally(id NodeID) bool {
    return self.nodes[id].kind == FinallyHandler
}

func (self *GraphBuilder) isCatch(id NodeID) bool {
    return self.nodes[id].kind == CatchHandler
}

// checkDuplicatedFinally reports finally handlers protecting byte-identical
// ranges. The first one in table order always wins the innermost lookups.
func (self *GraphBuilder) checkDuplicatedFinally() {
    for i, a := range self.ehs {
        for _, b := range self.ehs[i + 1:] {
            if a.IsFinally() && b.IsFinally() && a.Try == b.Try {
                self.log.Warn().
                    Str("try", a.Try.String()).
                    Str("first", a.Handler.String()).
                    Str("second", b.Handler.String()).
                    Msg("finally handlers share an identical try range, using the first one")
            }
        }
    }
}
