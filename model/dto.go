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

package model

// MemberDto is the member projection returned by listings and join queries.
type MemberDto struct {
	ID       int64  `bun:"id" json:"id"`
	UserName string `bun:"user_name" json:"user_name"`
	TeamName string `bun:"team_name" json:"team_name,omitempty"`
}

// NewMemberDto maps id and user name, and the team name when the team is
// loaded.
func NewMemberDto(m *Member) *MemberDto {
	dto := &MemberDto{ID: m.ID, UserName: m.UserName}
	if m.Team != nil {
		dto.TeamName = m.Team.Name
	}
	return dto
}
