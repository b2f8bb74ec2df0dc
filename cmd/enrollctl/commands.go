package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/enrollment-console/internal/models"
	"github.com/noah-isme/enrollment-console/internal/service"
)

type serverRow interface {
	RowID() string
	ServerKey() (int64, bool)
}

func rowByServerID[T serverRow](rows []T, arg string) (T, error) {
	var zero T
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return zero, fmt.Errorf("%q is not a backend id", arg)
	}
	for _, row := range rows {
		if sid, ok := row.ServerKey(); ok && sid == id {
			return row, nil
		}
	}
	return zero, fmt.Errorf("no row with id %d", id)
}

func newStudentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "students", Short: "List and change students"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := c.console.Students.List()
			return c.print(cmd.OutOrStdout(), rows, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSTATUS")
				for _, s := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", idText(s.ServerID), s.Name, s.Email, s.Status)
				}
			})
		},
	})

	var name, email string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.console.Students.Create(cmd.Context(), service.CreateStudentRequest{Name: name, Email: email})
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "student", "add", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}
	add.Flags().StringVar(&name, "name", "", "Student name")
	add.Flags().StringVar(&email, "email", "", "Student email")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a student; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowByServerID(c.console.Students.List(), args[0])
			if err != nil {
				return err
			}
			d := models.StudentDraft{Name: row.Name, Email: row.Email}
			if cmd.Flags().Changed("name") {
				d.Name = name
			}
			if cmd.Flags().Changed("email") {
				d.Email = email
			}
			res, err := c.console.Students.Edit(cmd.Context(), row.ClientID, d)
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "student", "edit", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}
	edit.Flags().StringVar(&name, "name", "", "Student name")
	edit.Flags().StringVar(&email, "email", "", "Student email")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowByServerID(c.console.Students.List(), args[0])
			if err != nil {
				return err
			}
			res, err := c.console.Students.Delete(cmd.Context(), row.ClientID)
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "student", "delete", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}

	cmd.AddCommand(add, edit, remove)
	return cmd
}

func newCoursesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "courses", Short: "List and change courses"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := c.console.Courses.List()
			return c.print(cmd.OutOrStdout(), rows, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tTITLE\tINSTRUCTOR")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\n", idText(r.ServerID), r.Title, r.Instructor)
				}
			})
		},
	})

	var title, instructor string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.console.Courses.Create(cmd.Context(), service.CreateCourseRequest{Title: title, Instructor: instructor})
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "course", "add", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}
	add.Flags().StringVar(&title, "title", "", "Course title")
	add.Flags().StringVar(&instructor, "instructor", "", "Instructor name")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a course; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowByServerID(c.console.Courses.List(), args[0])
			if err != nil {
				return err
			}
			d := models.CourseDraft{Title: row.Title, Instructor: row.Instructor}
			if cmd.Flags().Changed("title") {
				d.Title = title
			}
			if cmd.Flags().Changed("instructor") {
				d.Instructor = instructor
			}
			res, err := c.console.Courses.Edit(cmd.Context(), row.ClientID, d)
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "course", "edit", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}
	edit.Flags().StringVar(&title, "title", "", "Course title")
	edit.Flags().StringVar(&instructor, "instructor", "", "Instructor name")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a course; enrollments that point at it are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowByServerID(c.console.Courses.List(), args[0])
			if err != nil {
				return err
			}
			res, err := c.console.Courses.Delete(cmd.Context(), row.ClientID)
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "course", "delete", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}

	cmd.AddCommand(add, edit, remove)
	return cmd
}

func newEnrollmentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "enrollments", Short: "List and change enrollments"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List enrollments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := c.console.Enrollments.List()
			return c.print(cmd.OutOrStdout(), rows, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tSTUDENT\tCOURSE\tGRADE")
				for _, e := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", idText(e.ServerID),
						labelled(e.StudentID, e.StudentName), labelled(e.CourseID, e.CourseTitle), gradeText(e.Grade))
				}
			})
		},
	})

	var studentID, courseID, grade string
	add := &cobra.Command{
		Use:   "add",
		Short: "Enroll a student in a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.console.Enrollments.Create(cmd.Context(), service.CreateEnrollmentRequest{
				StudentID: studentID,
				CourseID:  courseID,
				Grade:     grade,
			})
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "enrollment", "add", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}
	add.Flags().StringVar(&studentID, "student", "", "Student backend id")
	add.Flags().StringVar(&courseID, "course", "", "Course backend id")
	add.Flags().StringVar(&grade, "grade", "", "Letter grade (optional)")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an enrollment; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowByServerID(c.console.Enrollments.List(), args[0])
			if err != nil {
				return err
			}
			d := models.EnrollmentDraft{
				StudentID: strconv.FormatInt(row.StudentID, 10),
				CourseID:  strconv.FormatInt(row.CourseID, 10),
				Grade:     string(row.Grade),
			}
			if cmd.Flags().Changed("student") {
				d.StudentID = studentID
			}
			if cmd.Flags().Changed("course") {
				d.CourseID = courseID
			}
			if cmd.Flags().Changed("grade") {
				d.Grade = grade
			}
			res, err := c.console.Enrollments.Edit(cmd.Context(), row.ClientID, d)
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "enrollment", "edit", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}
	edit.Flags().StringVar(&studentID, "student", "", "Student backend id")
	edit.Flags().StringVar(&courseID, "course", "", "Course backend id")
	edit.Flags().StringVar(&grade, "grade", "", "Letter grade; empty clears it")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an enrollment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowByServerID(c.console.Enrollments.List(), args[0])
			if err != nil {
				return err
			}
			res, err := c.console.Enrollments.Delete(cmd.Context(), row.ClientID)
			if err != nil {
				return err
			}
			return c.report(cmd.OutOrStdout(), "enrollment", "delete", res.Outcome, res.Err, res.Row.ServerID, res.Row)
		},
	}

	cmd.AddCommand(add, edit, remove)
	return cmd
}

func newDashboardCmd(c *cli) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show collection counts and matching students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := c.console.Dashboard.Summary(query)
			return c.print(cmd.OutOrStdout(), summary, func(w io.Writer) {
				m := summary.Metrics
				fmt.Fprintf(w, "Students\t%d\n", m.TotalStudents)
				fmt.Fprintf(w, "Courses\t%d\n", m.TotalCourses)
				fmt.Fprintf(w, "Active enrollments\t%d\n", m.ActiveEnrollments)
				fmt.Fprintf(w, "Dangling enrollments\t%d\n", m.DanglingEnrollments)
				fmt.Fprintln(w)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL")
				for _, s := range summary.Students {
					fmt.Fprintf(w, "%s\t%s\t%s\n", idText(s.ServerID), s.Name, s.Email)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Name or email fragment")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:       "export <students|courses|enrollments>",
		Short:     "Export a collection as CSV, PDF or XLSX",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{service.ResourceStudents, service.ResourceCourses, service.ResourceEnrollments},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := c.console.Export.Export(args[0], format)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(file.Body)
				return err
			}
			if err := os.WriteFile(out, file.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(file.Body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv, pdf or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "import", Short: "Bulk-load rows from a workbook"}
	cmd.AddCommand(&cobra.Command{
		Use:   "students <file.xlsx>",
		Short: "Create one student per row of the first sheet (name and email columns)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			report, err := c.console.Export.ImportStudents(cmd.Context(), f)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), report, func(w io.Writer) {
				fmt.Fprintf(w, "Processed\t%d\n", report.Processed)
				fmt.Fprintf(w, "Created\t%d\n", report.Created)
				fmt.Fprintf(w, "Not confirmed\t%d\n", report.Retained)
				for _, bad := range report.Invalid {
					fmt.Fprintf(w, "Row %d\t%s\n", bad.Row, bad.Message)
				}
			})
		},
	})
	return cmd
}

// print writes v as JSON or hands a tab-aligned writer to table.
func (c *cli) print(out io.Writer, v interface{}, table func(io.Writer)) error {
	if c.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

// report prints the outcome of a change. Reverted changes and unconfirmed creates fail the
// command since nothing was persisted.
func (c *cli) report(out io.Writer, kind, op string, outcome service.Outcome, remote error, serverID *int64, row interface{}) error {
	if c.output == "json" {
		payload := map[string]interface{}{"outcome": outcome, "row": row}
		if remote != nil {
			payload["upstream_error"] = remote.Error()
		}
		if err := c.print(out, payload, nil); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s %s %s: %s\n", kind, idText(serverID), op, outcome)
	}
	switch outcome {
	case service.OutcomeReverted, service.OutcomeRetained:
		return fmt.Errorf("%s %s not saved: %v", kind, op, remote)
	}
	return nil
}

func idText(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func labelled(id int64, name string) string {
	if name == "" {
		return "#" + strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s (#%d)", name, id)
}

func gradeText(g models.Grade) string {
	if g == "" {
		return "-"
	}
	return string(g)
}
