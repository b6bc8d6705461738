// Package command implements the period command protocol.
package command

// A command is a short ASCII frame terminated by a carriage return:
//
//	$T<target><dddd>&\r
//
// target is O (PWM period) or I (sampling period), case-insensitive,
// and dddd is the new period in milliseconds as exactly four decimal
// digits. Bytes are assembled into a bounded Frame by the Assembler,
// completed frames are handed to the consumer by value and validated
// by Parse.
//
// Every processed frame yields a status code:
//
//	 0 success
//	-1 empty string, or buffer full
//	-2 command not found
//	-3 wrong format
