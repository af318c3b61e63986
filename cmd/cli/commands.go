package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// out is where command results are printed
var out io.Writer = os.Stdout

var commands = []*cobra.Command{
	{
		Use:   "ping",
		Short: "Checks that the proxy answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(rdb.Ping(cmd.Context()).Result())
		},
	},
	{
		Use:   "get [key]",
		Short: "Reads the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := rdb.Get(cmd.Context(), args[0]).Result()
			if errors.Is(err, goredis.Nil) {
				fmt.Fprintf(out, "key=%s, found=false\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "key=%s, found=true, value=%s\n", args[0], val)
			return nil
		},
	},
	{
		Use:   "set [key] [value] [ttlSeconds]",
		Short: "Sets the value of a key, optionally with a time to live",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ttl int64
			if len(args) == 3 {
				var err error
				if ttl, err = strconv.ParseInt(args[2], 10, 64); err != nil || ttl < 0 {
					return fmt.Errorf("ttlSeconds must be a positive number")
				}
			}
			return printResult(rdb.Set(cmd.Context(), args[0], args[1], secondsToDuration(ttl)).Result())
		},
	},
	{
		Use:   "hlen [key]",
		Short: "Returns the number of fields of a dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(rdb.HLen(cmd.Context(), args[0]).Result())
		},
	},
	indexArgs(&cobra.Command{
		Use:   "lindex [key] [index]",
		Short: "Returns the element of a list at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("index must be a number: %w", err)
			}
			val, err := rdb.LIndex(cmd.Context(), args[0], index).Result()
			if errors.Is(err, goredis.Nil) {
				fmt.Fprintln(out, "(nil)")
				return nil
			}
			return printResult(val, err)
		},
	}),
	indexArgs(&cobra.Command{
		Use:   "lrange [key] [start] [stop]",
		Short: "Returns the elements of a list between start and stop (inclusive)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("start must be a number: %w", err)
			}
			stop, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("stop must be a number: %w", err)
			}
			return printList(rdb.LRange(cmd.Context(), args[0], start, stop).Result())
		},
	}),
	{
		Use:   "lpush [key] [element]...",
		Short: "Prepends elements to a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(rdb.LPush(cmd.Context(), args[0], toAny(args[1:])...).Result())
		},
	},
	{
		Use:   "rpush [key] [element]...",
		Short: "Appends elements to a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(rdb.RPush(cmd.Context(), args[0], toAny(args[1:])...).Result())
		},
	},
	{
		Use:   "sadd [key] [member]...",
		Short: "Adds members to a set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(rdb.SAdd(cmd.Context(), args[0], toAny(args[1:])...).Result())
		},
	},
	{
		Use:   "srem [key] [member]...",
		Short: "Removes members from a set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(rdb.SRem(cmd.Context(), args[0], toAny(args[1:])...).Result())
		},
	},
	{
		Use:   "sdiff [key]...",
		Short: "Returns the members of the first set that are in none of the others",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printList(rdb.SDiff(cmd.Context(), args...).Result())
		},
	},
	{
		Use:   "sinter [key]...",
		Short: "Returns the members that are in all sets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printList(rdb.SInter(cmd.Context(), args...).Result())
		},
	},
	{
		Use:   "sunion [key]...",
		Short: "Returns the members that are in any of the sets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printList(rdb.SUnion(cmd.Context(), args...).Result())
		},
	},
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func printResult[T any](val T, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(out, val)
	return nil
}

func printList(values []string, err error) error {
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(out, "(empty)")
	}
	for i, v := range values {
		fmt.Fprintf(out, "%d) %s\n", i+1, v)
	}
	return nil
}

// indexArgs stops flag parsing at the first argument, so negative indices
// (lrange list 0 -1) are not taken for flags. Flags go before the arguments.
func indexArgs(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

func toAny(values []string) []interface{} {
	res := make([]interface{}, len(values))
	for i, v := range values {
		res[i] = v
	}
	return res
}
