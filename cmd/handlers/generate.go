/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command for on-demand briefing
// generation for a single user.
func NewGenerateCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a briefing for one user right now",
		Long: `Generate a briefing for a single user on demand, skipping the period
check. If the user has never enabled briefings, this first run enables
them. Progress events publish to the briefing:events channel.

Example:
  newsbrief generate --user 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}
			return runGenerate(cmd.Context(), userID)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID to generate a briefing for")

	return cmd
}

func runGenerate(ctx context.Context, userID int64) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.worker.GenerateUserBriefing(ctx, userID, true)
}
