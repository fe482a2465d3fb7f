package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/stages"
	"github.com/andreyvit/stagedb/tables"
)

var (
	stagesCmd = &cobra.Command{
		Use:   "stages",
		Short: "Inspect and reset stage checkpoints",
	}

	stagesListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print the checkpoint of every stage",
		Args:  cobra.NoArgs,
		RunE:  runStagesList,
	}

	stagesResetCmd = &cobra.Command{
		Use:   "reset <stage>",
		Short: "Remove a stage's checkpoint so that it starts over",
		Args:  cobra.ExactArgs(1),
		RunE:  runStagesReset,
	}
)

func init() {
	stagesCmd.AddCommand(stagesListCmd)
	stagesCmd.AddCommand(stagesResetCmd)

	key := "force"
	stagesResetCmd.Flags().Bool(key, false, WrapString("Allow resetting a stage id that the node does not know"))
}

func runStagesList(cmd *cobra.Command, _ []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var all []stages.Progress
	err = db.View(cmd.Context(), func(tx *stagedb.Tx) error {
		all, err = tables.Stages.All(tx)
		return err
	})
	if err != nil {
		return err
	}

	saved := make(map[stages.StageID]stages.Checkpoint, len(all))
	for _, p := range all {
		saved[p.Stage] = p.Checkpoint
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tBLOCK\tREVISION")
	for _, id := range stages.AllStages {
		if cp, ok := saved[id]; ok {
			fmt.Fprintf(w, "%s\t%d\t%d\n", id, cp.BlockNumber, cp.Revision)
			delete(saved, id)
		} else {
			fmt.Fprintf(w, "%s\t-\t-\n", id)
		}
	}
	for _, p := range all {
		if _, ok := saved[p.Stage]; ok {
			fmt.Fprintf(w, "%s (unknown)\t%d\t%d\n", p.Stage, p.BlockNumber, p.Revision)
		}
	}
	return w.Flush()
}

func runStagesReset(cmd *cobra.Command, args []string) error {
	id := stages.StageID(args[0])
	force, _ := cmd.Flags().GetBool("force")
	if !id.IsKnown() && !force {
		return fmt.Errorf("unknown stage %q (use --force to reset it anyway)", id)
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(cmd.Context(), func(tx *stagedb.Tx) error {
		return tables.Stages.Reset(tx, id)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stage %s reset\n", id)
	return nil
}
