// Package fizzbuzz classifies 4 byte integer cells into Num, Fizz, Buzz and FizzBuzz and
// writes every classified cell, with full provenance, into the fizzbuzz table.
//
// Classification is checked in this order: multiples of 15 are FizzBuzz, multiples of
// 5 are Buzz, multiples of 3 are Fizz, everything else is Num.
//
// The derived row key is the 4 byte big-endian value followed by a suffix: ":FizzBuzz",
// ":Buzz" and ":Fizz" for the special categories and ":" plus the decimal value for
// Num. The derived family is the lower case category name. The qualifier is the
// provenance encoding of the source cell, so several source cells with the same value
// accumulate side by side in one derived row.
package fizzbuzz
