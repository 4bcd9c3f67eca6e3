package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dagda/internal/combat"
	"dagda/internal/domain"
	"dagda/internal/engine"
	"dagda/internal/rules"
)

func partyCmd() *cobra.Command {
	party := &cobra.Command{
		Use:   "party",
		Short: "Manage parties",
		Long:  "A party is one character and the campaign around it. Most commands act on the party named by --party.",
	}
	party.AddCommand(partyCreateCmd())
	party.AddCommand(partyListCmd())
	party.AddCommand(partyShowCmd())
	party.AddCommand(partyFinishCmd())
	party.AddCommand(partyDeleteCmd())
	return party
}

func partyCreateCmd() *cobra.Command {
	var in engine.CreatePartyInput
	var mode, talent string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a party and roll its character",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Mode = domain.GameMode(strings.ToUpper(mode))
			in.Talent = domain.Talent(strings.ToUpper(talent))
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateParty(ctx, in)
				if err != nil {
					return err
				}
				return printParty(p)
			})
		},
	}
	talents := make([]string, len(domain.Talents))
	for i, t := range domain.Talents {
		talents[i] = string(t)
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "party name")
	cmd.Flags().StringVar(&in.CharacterName, "character", "", "character name")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeNarrative), "NARRATIVE, SIMPLIFIED or MORTAL")
	cmd.Flags().StringVar(&talent, "talent", "", strings.Join(talents, ", "))
	return cmd
}

func partyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List parties, most recently played first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				parties, err := e.ListParties(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(parties)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Mode", "Status", "Chapter", "HP", "Updated"})
				for _, p := range parties {
					c := p.Character
					tw.AppendRow(table.Row{p.ID, p.Name, p.Mode, p.Status, p.CurrentChapter, fmt.Sprintf("%d/%d", c.HPCurrent, c.HPMax), p.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func partyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a party",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := partyArg(args)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetParty(ctx, id)
				if err != nil {
					return err
				}
				return printParty(p)
			})
		},
	}
}

func partyFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish [id]",
		Short: "Mark a party as finished",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := partyArg(args)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.FinishParty(ctx, id)
				if err != nil {
					return err
				}
				return printParty(p)
			})
		},
	}
}

func partyDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a party with its notes, saves, timeline and outbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deleting %s cannot be undone; pass --yes", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteParty(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func chapterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chapter <n>",
		Short: "Move the party to a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("chapter must be a number: %w", err)
			}
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				p, changed, err := e.UpdateChapter(ctx, id, n)
				if err != nil {
					return err
				}
				if !changed && !viper.GetBool("json") {
					fmt.Println("already at chapter", n)
					return nil
				}
				return printParty(p)
			})
		},
	}
}

func hpCmd() *cobra.Command {
	var damage, heal int
	cmd := &cobra.Command{
		Use:   "hp",
		Short: "Apply damage or healing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (damage == 0) == (heal == 0) {
				return fmt.Errorf("pass exactly one of --damage or --heal")
			}
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				res, err := e.UpdateHP(ctx, id, heal-damage)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				switch {
				case res.DeathReset:
					fmt.Println("The character fell. The party starts over from chapter 1.")
				case res.MortalDeath:
					fmt.Println("The character is dead. This party is over.")
				case res.Dead:
					fmt.Println("The character is at 0 HP.")
				}
				return printParty(res.Party)
			})
		},
	}
	cmd.Flags().IntVar(&damage, "damage", 0, "HP lost")
	cmd.Flags().IntVar(&heal, "heal", 0, "HP regained")
	return cmd
}

func luckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "luck <cost>",
		Short: "Spend luck points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("cost must be a number: %w", err)
			}
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				p, err := e.ApplyLuck(ctx, id, cost)
				if err != nil {
					return err
				}
				return printParty(p)
			})
		},
	}
}

func noteCmd() *cobra.Command {
	note := &cobra.Command{Use: "note", Short: "Campaign notes"}
	note.AddCommand(&cobra.Command{
		Use:   "add <text>",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				n, err := e.AddNote(ctx, id, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(n)
				}
				fmt.Println("note", n.ID, "added")
				return nil
			})
		},
	})
	note.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				notes, err := e.Notes(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(notes)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Note"})
				for _, n := range notes {
					tw.AppendRow(table.Row{n.CreatedAt, n.Content})
				}
				tw.Render()
				return nil
			})
		},
	})
	return note
}

func actionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "action <label>",
		Short: "Log a free-form action on the timeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				evt, err := e.AddCustomAction(ctx, id, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printEvents([]domain.TimelineEvent{evt})
			})
		},
	}
}

func inventoryCmd() *cobra.Command {
	inv := &cobra.Command{Use: "inventory", Short: "Edit the character's inventory"}

	inv.AddCommand(&cobra.Command{
		Use:   "set-currency <bolts>",
		Short: "Set the purse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bolts, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bolts must be a number: %w", err)
			}
			return patchInventory(cmd.Context(), fmt.Sprintf("Purse set to %d bolts", bolts), func(cur domain.Inventory) rules.InventoryPatch {
				return rules.InventoryPatch{Currency: &bolts}
			})
		},
	})

	var weapon domain.Weapon
	addWeapon := &cobra.Command{
		Use:   "add-weapon",
		Short: "Add a weapon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weapon.ID == "" {
				weapon.ID = uuid.NewString()
			}
			return patchInventory(cmd.Context(), fmt.Sprintf("Weapon added: %s", weapon.Name), func(cur domain.Inventory) rules.InventoryPatch {
				weapons := append(append([]domain.Weapon{}, cur.Weapons...), weapon)
				return rules.InventoryPatch{Weapons: &weapons}
			})
		},
	}
	addWeapon.Flags().StringVar(&weapon.ID, "id", "", "weapon id (generated when empty)")
	addWeapon.Flags().StringVar(&weapon.Name, "name", "", "weapon name")
	addWeapon.Flags().IntVar(&weapon.Bonus, "bonus", 0, "damage bonus")
	addWeapon.Flags().StringVar(&weapon.Description, "description", "", "description")
	inv.AddCommand(addWeapon)

	var item domain.Item
	addItem := &cobra.Command{
		Use:   "add-item",
		Short: "Add an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			return patchInventory(cmd.Context(), fmt.Sprintf("Item added: %s x%d", item.Name, item.Quantity), func(cur domain.Inventory) rules.InventoryPatch {
				items := append(append([]domain.Item{}, cur.Items...), item)
				return rules.InventoryPatch{Items: &items}
			})
		},
	}
	addItem.Flags().StringVar(&item.ID, "id", "", "item id (generated when empty)")
	addItem.Flags().StringVar(&item.Name, "name", "", "item name")
	addItem.Flags().IntVar(&item.Quantity, "qty", 1, "quantity")
	addItem.Flags().StringVar(&item.Description, "description", "", "description")
	inv.AddCommand(addItem)

	inv.AddCommand(&cobra.Command{
		Use:   "equip <weapon-id>",
		Short: "Equip a weapon; pass an empty id to unequip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			label := "Weapon unequipped"
			if id != "" {
				label = "Weapon equipped: " + id
			}
			return patchInventory(cmd.Context(), label, func(cur domain.Inventory) rules.InventoryPatch {
				return rules.InventoryPatch{EquippedWeaponID: &id}
			})
		},
	})

	inv.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a weapon or an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			return patchInventory(cmd.Context(), "Removed from inventory: "+target, func(cur domain.Inventory) rules.InventoryPatch {
				weapons := []domain.Weapon{}
				for _, w := range cur.Weapons {
					if w.ID != target {
						weapons = append(weapons, w)
					}
				}
				items := []domain.Item{}
				for _, it := range cur.Items {
					if it.ID != target {
						items = append(items, it)
					}
				}
				patch := rules.InventoryPatch{Weapons: &weapons, Items: &items}
				if cur.EquippedWeaponID == target {
					none := ""
					patch.EquippedWeaponID = &none
				}
				return patch
			})
		},
	})
	return inv
}

func patchInventory(ctx context.Context, label string, build func(domain.Inventory) rules.InventoryPatch) error {
	return withParty(ctx, func(ctx context.Context, e engine.Engine, id string) error {
		p, err := e.GetParty(ctx, id)
		if err != nil {
			return err
		}
		p, err = e.UpdateInventory(ctx, id, build(p.Character.Inventory), label)
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(p.Character.Inventory)
		}
		inv := p.Character.Inventory
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle(fmt.Sprintf("Inventory (%d bolts)", inv.Currency.Bolts))
		tw.AppendHeader(table.Row{"ID", "Kind", "Name", "Bonus/Qty", ""})
		equipped, _ := rules.EquippedWeapon(inv)
		for _, w := range inv.Weapons {
			mark := ""
			if w.ID == equipped.ID {
				mark = "equipped"
			}
			tw.AppendRow(table.Row{w.ID, "weapon", w.Name, w.Bonus, mark})
		}
		for _, it := range inv.Items {
			tw.AppendRow(table.Row{it.ID, "item", it.Name, it.Quantity, ""})
		}
		tw.Render()
		return nil
	})
}

func saveCmd() *cobra.Command {
	save := &cobra.Command{
		Use:   "save",
		Short: "Save slots",
		Long:  "Each party has three save slots. Saving into a used slot replaces it. SIMPLIFIED parties may only restore their newest save.",
	}
	save.AddCommand(&cobra.Command{
		Use:   "create <slot>",
		Short: "Save into slot 1, 2 or 3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("slot must be a number: %w", err)
			}
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				res, err := e.CreateSave(ctx, id, slot)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				verb := "saved to"
				if res.Replaced {
					verb = "replaced"
				}
				fmt.Printf("%s slot %d (%s)\n", verb, res.Slot.Slot, res.Slot.ID)
				return nil
			})
		},
	})
	save.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				slots, err := e.SaveSlots(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					headers := make([]domain.SaveSlot, len(slots))
					for i, s := range slots {
						headers[i] = s.Header()
					}
					return printJSON(headers)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Slot", "ID", "Saved", "Chapter", "HP"})
				for _, s := range slots {
					chapter, hp := "", ""
					if s.Snapshot != nil {
						c := s.Snapshot.Party.Character
						chapter = strconv.Itoa(s.Snapshot.Party.CurrentChapter)
						hp = fmt.Sprintf("%d/%d", c.HPCurrent, c.HPMax)
					}
					tw.AppendRow(table.Row{s.Slot, s.ID, s.CreatedAt, chapter, hp})
				}
				tw.Render()
				return nil
			})
		},
	})
	save.AddCommand(&cobra.Command{
		Use:   "restore <slot|slot-id>",
		Short: "Restore a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				slotID, err := resolveSlot(ctx, e, id, args[0])
				if err != nil {
					return err
				}
				p, err := e.RestoreSave(ctx, id, slotID)
				if err != nil {
					return err
				}
				return printParty(p)
			})
		},
	})
	return save
}

// resolveSlot accepts either a slot number or a slot id.
func resolveSlot(ctx context.Context, e engine.Engine, partyID, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	slots, err := e.SaveSlots(ctx, partyID)
	if err != nil {
		return "", err
	}
	for _, s := range slots {
		if s.Slot == n {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("slot %d is empty", n)
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the party as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				res, err := e.ExportParty(ctx, id)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err := os.Stdout.Write(res.JSON)
					return err
				}
				if err := os.WriteFile(out, res.JSON, 0o644); err != nil {
					return err
				}
				fmt.Println(res.Summary)
				fmt.Println("wrote", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported party as a new party",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.ImportParty(ctx, data)
				if err != nil {
					return err
				}
				return printParty(p)
			})
		},
	}
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Timeline"}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest timeline events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				events, err := e.RecentEvents(ctx, id, n, domain.EventType(evtType))
				if err != nil {
					return err
				}
				return printEvents(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events (0 for all)")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func outboxCmd() *cobra.Command {
	ob := &cobra.Command{
		Use:   "outbox",
		Short: "Events staged for a future sync",
	}
	ob.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List pending outbox entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.PendingOutbox(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Party", "Type", "Created"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.PartyID, it.Type, it.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	ob.AddCommand(&cobra.Command{
		Use:   "mark-sent <id>",
		Short: "Mark an outbox entry as delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.MarkOutboxSent(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("marked", args[0], "as sent")
				return nil
			})
		},
	})
	return ob
}

func combatCmd() *cobra.Command {
	var specs []string
	var rounds int
	cmd := &cobra.Command{
		Use:   "combat",
		Short: "Fight up to five enemies, resolved automatically",
		Long:  "Each --enemy is name:hp:dexterity[:attack-bonus]. The character strikes the first standing enemy every round, then every standing enemy strikes back.",
		RunE: func(cmd *cobra.Command, args []string) error {
			enemies := make([]combat.EnemySpec, 0, len(specs))
			for _, s := range specs {
				spec, err := parseEnemy(s)
				if err != nil {
					return err
				}
				enemies = append(enemies, spec)
			}
			return withParty(cmd.Context(), func(ctx context.Context, e engine.Engine, id string) error {
				session := combat.NewSession(e, e.Dice)
				if err := session.Start(ctx, id, enemies); err != nil {
					return err
				}
				outcome, err := session.AutoResolve(ctx, rounds)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"outcome": outcome,
						"rounds":  session.Rounds(),
						"enemies": session.Enemies(),
						"party":   session.Party(),
					})
				}
				events, err := e.RecentEvents(ctx, id, 0, "")
				if err != nil {
					return err
				}
				var fight []domain.TimelineEvent
				for _, evt := range events {
					fight = append([]domain.TimelineEvent{evt}, fight...)
					if evt.Type == domain.EventCombatStarted {
						break
					}
				}
				if err := printEvents(fight); err != nil {
					return err
				}
				if outcome == combat.OutcomeNone {
					fmt.Printf("No decision after %d rounds.\n", session.Rounds())
				} else {
					fmt.Printf("%s after %d rounds.\n", outcome, session.Rounds())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&specs, "enemy", nil, "enemy as name:hp:dexterity[:attack-bonus] (repeatable)")
	cmd.Flags().IntVar(&rounds, "rounds", 50, "give up after this many rounds")
	return cmd
}

func parseEnemy(s string) (combat.EnemySpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return combat.EnemySpec{}, fmt.Errorf("enemy %q: want name:hp:dexterity[:attack-bonus]", s)
	}
	nums := make([]int, 3)
	for i, raw := range parts[1:] {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return combat.EnemySpec{}, fmt.Errorf("enemy %q: %w", s, err)
		}
		nums[i] = v
	}
	return combat.EnemySpec{Name: parts[0], HP: nums[0], Dexterity: nums[1], AttackBonus: nums[2]}, nil
}

func withParty(ctx context.Context, fn func(context.Context, engine.Engine, string) error) error {
	id, err := currentParty()
	if err != nil {
		return err
	}
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		return fn(ctx, e, id)
	})
}

func partyArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return currentParty()
}
