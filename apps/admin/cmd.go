package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/kelasi/apps"
	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/school"
	"github.com/trezcool/kelasi/storage/database/sqlx"
)

// systemActorID marks the audit entries written from the command line.
const systemActorID = 0

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sqlx.DB
	store      *sqlxrepos.Store
	classSvc   *classroom.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Kelasi administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(cli.migrateCmd(), cli.addSchoolCmd(), cli.schoolsCmd(), cli.addClassCmd(), cli.classesCmd(), cli.auditCmd())
	return root
}

// run executes the command line, `args` including the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) addSchoolCmd() *cobra.Command {
	var data school.NewSchool
	cmd := &cobra.Command{
		Use:   "addschool",
		Short: "Create a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			if data.Name == "" {
				return apps.MissingFlagError("name")
			}
			if err := data.Validate(cli.validate); err != nil {
				return core.NewValidationError(err, core.TranslateValidationErrors(err, cli.translator)...)
			}
			sch, err := cli.store.Schools().CreateSchool(cmd.Context(), school.School{
				Name:            data.Name,
				MatriculePrefix: data.MatriculePrefix,
				CreatedAt:       core.NowFunc().UTC(),
			})
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cli.out, "created school %d: %s\n", sch.ID, sch.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&data.Name, "name", "", "the school name")
	cmd.Flags().StringVar(&data.MatriculePrefix, "prefix", "", "the matricule prefix (2 to 6 letters)")
	return cmd
}

func (cli *commandLine) schoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schools",
		Short: "List the schools",
		RunE: func(cmd *cobra.Command, args []string) error {
			schools, err := cli.store.Schools().QuerySchools(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPREFIX")
			for _, s := range schools {
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Name, s.MatriculePrefix)
			}
			return w.Flush()
		},
	}
}

func (cli *commandLine) addClassCmd() *cobra.Command {
	var data classroom.NewClass
	cmd := &cobra.Command{
		Use:   "addclass",
		Short: "Create a class in a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			if data.SchoolID <= 0 {
				return apps.MissingFlagError("school")
			}
			if _, err := cli.store.Schools().GetSchool(cmd.Context(), data.SchoolID); err != nil {
				return err
			}
			class, err := cli.classSvc.Create(cmd.Context(), data)
			if err != nil {
				return err
			}
			desc := fmt.Sprintf("created class %s (%s, %s)", class.Label, class.Level, class.SchoolYear)
			if err = cli.store.AuditLogs().Record(cmd.Context(), class.SchoolID, systemActorID, core.ActionCreateClass, desc); err != nil {
				color.New(color.FgYellow).Fprintf(cli.out, "could not record audit entry: %v\n", err)
			}
			color.New(color.FgGreen).Fprintf(cli.out, "created class %d: %s %s (%d seats)\n",
				class.ID, class.Label, class.SchoolYear, class.MaxCapacity)
			return nil
		},
	}
	cmd.Flags().IntVar(&data.SchoolID, "school", 0, "the school id")
	cmd.Flags().StringVar(&data.Label, "label", "", "the class label, eg. 6A")
	cmd.Flags().StringVar(&data.Level, "level", "", "the level, eg. Primary")
	cmd.Flags().StringVar(&data.SchoolYear, "year", "", "the school year, eg. 2025-2026")
	cmd.Flags().IntVar(&data.MaxCapacity, "capacity", 0, "the number of seats")
	return cmd
}

func (cli *commandLine) classesCmd() *cobra.Command {
	var (
		schoolID int
		order    string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes of a school with their occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schoolID <= 0 {
				return apps.MissingFlagError("school")
			}
			ords := core.ParseOrdering(order, classroom.OrderingFields)
			if len(ords) == 0 {
				ords = classroom.DefaultOrdering
			}
			classes, err := cli.store.Classes().QueryClasses(cmd.Context(), schoolID, !all, ords...)
			if err != nil {
				return err
			}

			// seats come last: color codes would otherwise count in the column widths
			full := color.New(color.FgRed)
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tLEVEL\tYEAR\tACTIVE\tSEATS")
			for _, c := range classes {
				seats := fmt.Sprintf("%d/%d", c.CurrentOccupancy, c.MaxCapacity)
				if c.IsFull() {
					seats = full.Sprint(seats)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", c.ID, c.Label, c.Level, c.SchoolYear, c.IsActive, seats)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&schoolID, "school", 0, "the school id")
	cmd.Flags().StringVar(&order, "order", "", "comma separated fields, prefix with - to sort descending")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive classes")
	return cmd
}

func (cli *commandLine) auditCmd() *cobra.Command {
	var (
		schoolID int
		limit    uint64
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the latest audit entries of a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schoolID <= 0 {
				return apps.MissingFlagError("school")
			}
			entries, err := cli.store.AuditLogs().Recent(cmd.Context(), schoolID, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tACTOR\tACTION\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.ActorID, e.Action, e.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&schoolID, "school", 0, "the school id")
	cmd.Flags().Uint64Var(&limit, "limit", 20, "the number of entries")
	return cmd
}
