package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/metacoord/pkg/types"
)

var showTableCmd = &cobra.Command{
	Use:   "show-table SCHEMA TABLE",
	Short: "Print a table's catalog entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openDeps()
		if err != nil {
			return err
		}
		defer cat.Close()
		table, err := cat.GetTable(context.Background(), types.TableKey{Schema: args[0], Table: args[1]})
		if err != nil {
			return err
		}
		fmt.Printf("%s.%s  location=%s managed=%t partitioned=%t owner=%q\n",
			table.Schema, table.Name, table.Location, table.Managed, table.Partitioned, table.Owner)
		for _, c := range table.Columns {
			fmt.Printf("  %s %s\n", c.Name, c.Type)
		}
		return nil
	},
}

var listPartitionsCmd = &cobra.Command{
	Use:   "list-partitions SCHEMA TABLE",
	Short: "List a table's partition names",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openDeps()
		if err != nil {
			return err
		}
		defer cat.Close()
		names, err := cat.GetPartitionNames(context.Background(), types.TableKey{Schema: args[0], Table: args[1]})
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showTableCmd, listPartitionsCmd)
}
