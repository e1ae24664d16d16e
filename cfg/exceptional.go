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

func (self *GraphBuilder) createExceptionalControlFlow() {
    for _, p := range self.nodes {
        switch p.kind {
            case NormalBlock    : self.createThrowControlFlow(p)
            case CatchHandler   : self.createCatchControlFlow(p)
            case FinallyHandler : self.createFinallyControlFlow(p)
        }
    }
}

// createThrowControlFlow links a block to every handler that may receive an
// exception thrown by its last instruction.
func (self *GraphBuilder) createThrowControlFlow(p *Node) {
    off := p.end.Offset
    ih := self.innermostHandlerNode(off)

    /* not protected at all: escape the method, unless the block belongs to a
     * catch body whose try block has an adjacent finally handler */
    if ih == exceptionalExit {
        self.link(p.id, self.escapeTarget(p), JumpToExceptionHandler)
        return
    }

    /* every handler sharing the try block may receive the exception */
    try := self.nodes[ih].handler.Try
    for _, eh := range self.ehs {
        if eh.Try == try {
            self.link(p.id, self.hnodes[eh], JumpToExceptionHandler)
        }
    }

    /* inside a catch body, the adjacent finally must still run */
    if hb := self.innermostHandlerBlock(off, false); hb != ih && self.isCatch(hb) {
        if fh := self.adjacentFinallyNode(hb); self.isFinally(fh) {
            self.link(p.id, fh, JumpToExceptionHandler)
        }
    }
}

func (self *GraphBuilder) escapeTarget(p *Node) NodeID {
    hb := self.innermostHandlerBlock(p.end.Offset, false)
    eh := self.nodes[hb].handler

    /* not inside any handler body */
    if eh == nil {
        return exceptionalExit
    }

    /* the finally handler never catches exceptions from its own body */
    if fh := self.adjacentFinallyNode(hb); self.isFinally(fh) && !self.nodes[fh].handler.Handler.Contains(p.end) {
        return fh
    } else {
        return exceptionalExit
    }
}

func (self *GraphBuilder) createCatchControlFlow(p *Node) {
    self.link(p.id, self.adjacentFinallyNode(p.id), JumpToExceptionHandler)
    self.jump(p.id, p.handler.Handler.First, Normal)
}

// createFinallyControlFlow links a finally handler to the finally handler that
// catches whatever escapes its body.
func (self *GraphBuilder) createFinallyControlFlow(p *Node) {
    eh := self.innermost(except(finallyOnly, p.handler), p.handler.Handler.Last.Offset)
    self.link(p.id, self.handlerNode(eh), JumpToExceptionHandler)
    self.jump(p.id, p.handler.Handler.First, Normal)
}
