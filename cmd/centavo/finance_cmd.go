package main

import (
	"fmt"

	"github.com/Urientropy/centavo/finance"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newEntriesCmd builds the commands of one entry kind; incomes and expenses
// behave the same.
func newEntriesCmd(c *cli, kind finance.Kind, singular string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: "Manage " + string(kind),
	}

	var flags listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + string(kind),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			store := a.Finance.Store(kind)
			if err := fetch(cmd.Context(), store, flags); err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), store.State(),
				[]any{"ID", "Date", "Description", "Amount"},
				func(e finance.Entry) table.Row {
					return table.Row{e.ID, e.Date, e.Description, e.Amount}
				})
			return nil
		},
	}
	flags.register(list)

	var in finance.EntryInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Record an " + singular,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			e, err := a.Finance.Create(cmd.Context(), kind, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sCreated%s %s %d: %s %s\n", Green, ResetColor, singular, e.ID, e.Description, e.Amount)
			return nil
		},
	}
	create.Flags().StringVar(&in.Description, "description", "", "description")
	create.Flags().StringVar((*string)(&in.Amount), "amount", "", "amount")
	create.Flags().StringVar(&in.Date, "date", "", "date, YYYY-MM-DD")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an " + singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Finance.Delete(cmd.Context(), kind, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sDeleted%s %s %d\n", Green, ResetColor, singular, id)
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}
