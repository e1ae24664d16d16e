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

    `github.com/pkg/errors`
)

// ErrCancelled is returned when dominance computation is aborted through its
// context. Results of a cancelled computation must be discarded.
var ErrCancelled = errors.New("dominance computation cancelled")

// PreconditionError occurs when the graph or the builder is handed
// structurally invalid input.
type PreconditionError struct {
    Reason string
}

func (self PreconditionError) Error() string {
    return "flowgraph: precondition violated: " + self.Reason
}

// InvariantError occurs when an algorithm finds the graph in a state that
// cannot arise from well-formed input, usually because the exception table is
// inconsistent with the instruction stream.
type InvariantError struct {
    Node   NodeID
    Reason string
}

func (self InvariantError) Error() string {
    if self.Node == NoNode {
        return "flowgraph: invariant broken: " + self.Reason
    } else {
        return fmt.Sprintf("flowgraph: invariant broken at node #%d: %s", self.Node, self.Reason)
    }
}

type cancelError struct {
    cause error
}

func (self cancelError) Error() string {
    return fmt.Sprintf("%s: %v", ErrCancelled, self.cause)
}

func (self cancelError) Is(err error) bool {
    return err == ErrCancelled
}

func (self cancelError) Unwrap() error {
    return self.cause
}

func precondition(format string, args ...interface{}) error {
    return errors.WithStack(PreconditionError{Reason: fmt.Sprintf(format, args...)})
}

func invariant(node NodeID, format string, args ...interface{}) {
    panic(errors.WithStack(InvariantError{Node: node, Reason: fmt.Sprintf(format, args...)}))
}

func rescue(ep *error) {
    if val := recover(); val != nil {
        if err, ok := val.(error); ok {
            *ep = err
        } else {
            panic(val)
        }
    }
}
