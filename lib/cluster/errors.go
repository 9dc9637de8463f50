// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cluster

import (
	"errors"
	"fmt"
)

// Error marks a failure as originating from the cluster control plane or a
// pod lifecycle operation, as opposed to a failure of the user's code.
// Callers treat cluster errors as transient and retryable.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cluster: %s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// IsClusterError returns true if err originated from a cluster operation.
func IsClusterError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
