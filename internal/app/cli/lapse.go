package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hradmin/internal/app/server"
	"hradmin/internal/domain/leave"
	"hradmin/internal/platform/config"
)

// cliActor is recorded as the actor of job runs started from the command line.
const cliActor = "cli"

func NewLapseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lapse",
		Short: "Preview or apply the year-end lapse of leave balances",
		Long: `lapse lists the unlapsed ledger entries of eligible employees that grant any of the
selected leave types for the year. With --confirm the entries are marked lapsed in one batch.`,
		Args: cobra.NoArgs,
		RunE: runLapse,
	}
	cmd.Flags().Int("year", time.Now().Year()-1, "Grant year to lapse")
	cmd.Flags().StringSlice("leave-type", nil, "Leave policy ID or leave name (repeatable)")
	cmd.Flags().StringSlice("company", nil, "Company ID in scope (repeatable)")
	cmd.Flags().Bool("confirm", false, "Apply the lapse instead of previewing it")
	_ = cmd.MarkFlagRequired("leave-type")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func runLapse(cmd *cobra.Command, args []string) error {
	year, _ := cmd.Flags().GetInt("year")
	leaveTypes, _ := cmd.Flags().GetStringSlice("leave-type")
	companies, _ := cmd.Flags().GetStringSlice("company")
	confirm, _ := cmd.Flags().GetBool("confirm")

	cfg := config.Load()
	cfg.RunMigrations = false
	cfg.RunSeed = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := server.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc := server.NewServices(pool, cfg).Leave

	policies, err := svc.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("list leave policies: %w", err)
	}
	policyIDs, err := resolvePolicyIDs(policies, leaveTypes)
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx, leave.RunInput{
		CompanyScope: companies,
		PolicyIDs:    policyIDs,
		Year:         year,
		Confirm:      confirm,
		ActorID:      cliActor,
	})
	if err != nil {
		return err
	}
	printLapse(cmd.OutOrStdout(), result)
	return nil
}

// resolvePolicyIDs maps each value to a policy, matching the ID first and then the leave
// name without regard to case.
func resolvePolicyIDs(policies []leave.LeavePolicy, values []string) ([]string, error) {
	ids := make([]string, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		id := ""
		for _, p := range policies {
			if p.ID == value {
				id = p.ID
				break
			}
		}
		if id == "" {
			for _, p := range policies {
				if strings.EqualFold(p.LeaveName, value) {
					id = p.ID
					break
				}
			}
		}
		if id == "" {
			return nil, fmt.Errorf("unknown leave type %q", value)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printLapse(w io.Writer, result leave.RunResult) {
	preview := result.Preview
	if preview.NoMatches {
		fmt.Fprintf(w, "No unlapsed entries for %s in %d.\n", strings.Join(preview.LeaveNames, ", "), preview.Year)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tEMPLOYEE\tBATCH\tLEAVE")
	for _, entry := range preview.Entries {
		names := make([]string, 0, len(entry.Policies))
		for _, p := range entry.Policies {
			names = append(names, fmt.Sprintf("%s (%d)", p.LeaveName, p.GrantDays))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.ID, entry.EmpID, entry.BatchID, strings.Join(names, ", "))
	}
	_ = tw.Flush()

	if result.Applied == nil {
		fmt.Fprintf(w, "%d entries would lapse. Re-run with --confirm to apply.\n", len(preview.Entries))
		return
	}
	fmt.Fprintf(w, "%d entries lapsed at %s.\n", result.Applied.Lapsed, result.Applied.LapsedAt.UTC().Format(time.RFC3339))
}
