package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

func addDays(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "days [day]",
		Short: "Print the schedule, or a single day of it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), o, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			if len(args) == 1 {
				day, err := domain.ParseDayKey(args[0])
				if err != nil {
					return fmt.Errorf("day: %w", err)
				}
				printDay(cmd.OutOrStdout(), string(day), s.view.Day(day))
				return nil
			}
			printSchedule(cmd.OutOrStdout(), s.view)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addMove(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:     "move <day> <from> <to>",
		Short:   "Move the item at position from to position to within a day",
		Example: "planner move 2025-06-01 0 2",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, from, to, err := parseMoveArgs(args)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), o, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.view.MoveItem(cmd.Context(), day, from, to); err != nil {
				return err
			}
			printDay(cmd.OutOrStdout(), string(day), s.view.Day(day))
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

type addOptions struct {
	Address   string
	Phone     string
	Latitude  float64
	Longitude float64
}

func addAdd(topLevel *cobra.Command, o *rootOptions) {
	ao := &addOptions{}
	cmd := &cobra.Command{
		Use:     "add <day> <place name>",
		Short:   "Append a place to the end of a day",
		Example: `planner add 2025-06-01 "Dongmun Market" --lat 33.511 --lng 126.526`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := domain.ParseDayKey(args[0])
			if err != nil {
				return fmt.Errorf("day: %w", err)
			}
			c := domain.PlaceCandidate{PlaceName: args[1], Address: ao.Address, Phone: ao.Phone}
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return errors.New("--lat and --lng must be given together")
			}
			if latSet {
				c.Latitude, c.Longitude = &ao.Latitude, &ao.Longitude
			}

			s, err := openSession(cmd.Context(), o, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.view.AddPlace(cmd.Context(), day, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s at position %d\n", item.ID, item.OrderIndex)
			return nil
		},
	}
	cmd.Flags().StringVar(&ao.Address, "address", "", "Street address.")
	cmd.Flags().StringVar(&ao.Phone, "phone", "", "Phone number.")
	cmd.Flags().Float64Var(&ao.Latitude, "lat", 0, "Latitude.")
	cmd.Flags().Float64Var(&ao.Longitude, "lng", 0, "Longitude.")
	topLevel.AddCommand(cmd)
}

func addDelete(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "delete <day> <item id>",
		Short: "Delete an item and close the gap it leaves",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := domain.ParseDayKey(args[0])
			if err != nil {
				return fmt.Errorf("day: %w", err)
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("item id: %w", err)
			}
			s, err := openSession(cmd.Context(), o, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.view.DeleteItem(cmd.Context(), day, id); err != nil {
				return err
			}
			printDay(cmd.OutOrStdout(), string(day), s.view.Day(day))
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

type editOptions struct {
	Name string
	Time string
	Memo string
}

func addEdit(topLevel *cobra.Command, o *rootOptions) {
	eo := &editOptions{}
	cmd := &cobra.Command{
		Use:     "edit <item id>",
		Short:   "Change an item's name, visit time or memo",
		Example: `planner edit 3f0c... --time 09:30 --memo "book ahead"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("item id: %w", err)
			}
			patch := eo.patch(cmd)
			if patch.Empty() {
				return errors.New("nothing to change: pass --name, --time or --memo")
			}
			s, err := openSession(cmd.Context(), o, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			return s.view.EditFields(cmd.Context(), id, patch)
		},
	}
	addEditArgs(cmd, eo)
	topLevel.AddCommand(cmd)
}

func addEditArgs(cmd *cobra.Command, eo *editOptions) {
	cmd.Flags().StringVar(&eo.Name, "name", "", "New place name.")
	cmd.Flags().StringVar(&eo.Time, "time", "", "Visit time, HH:MM. Pass an empty value to clear it.")
	cmd.Flags().StringVar(&eo.Memo, "memo", "", "Memo text. Pass an empty value to clear it.")
}

// patch includes only the flags the user actually set.
func (eo *editOptions) patch(cmd *cobra.Command) domain.ItemPatch {
	var p domain.ItemPatch
	if cmd.Flags().Changed("name") {
		p.PlaceName = &eo.Name
	}
	if cmd.Flags().Changed("time") {
		p.VisitTime = &eo.Time
	}
	if cmd.Flags().Changed("memo") {
		p.Memo = &eo.Memo
	}
	return p
}

func addWatch(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the schedule every time it changes, until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), o, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			printSchedule(out, s.view)
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-s.view.Changes():
					fmt.Fprintln(out, "----")
					printSchedule(out, s.view)
				}
			}
		},
	}
	topLevel.AddCommand(cmd)
}

func parseMoveArgs(args []string) (day domain.DayKey, from, to int, err error) {
	if day, err = domain.ParseDayKey(args[0]); err != nil {
		return "", 0, 0, fmt.Errorf("day: %w", err)
	}
	if from, err = strconv.Atoi(args[1]); err != nil {
		return "", 0, 0, fmt.Errorf("from: %w", err)
	}
	if to, err = strconv.Atoi(args[2]); err != nil {
		return "", 0, 0, fmt.Errorf("to: %w", err)
	}
	return day, from, to, nil
}
