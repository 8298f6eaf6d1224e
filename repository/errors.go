/*
 * Copyright 2025 tomoncle.
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

package repository

import "errors"

var (
	ErrEntityNotFound      = errors.New("entity not found")
	ErrNonUniqueResult     = errors.New("query did not return a unique result")
	ErrReadOnlyEntity      = errors.New("entity was loaded read-only and cannot be saved")
	ErrTransactionRequired = errors.New("operation requires a transaction")
	ErrUnknownProperty     = errors.New("unknown property")
	ErrUnsupportedKeyword  = errors.New("unsupported query keyword")
	ErrInvalidMethod       = errors.New("invalid query method name")
	ErrArgumentCount       = errors.New("argument count does not match query parameters")
)
