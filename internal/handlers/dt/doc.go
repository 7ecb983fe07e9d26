// Package dt provides the dt command, which formats a date/time using a
// configured format.
//
//	%dt(2024-05-01 14:30)%      format ""
//	#dt?long(2024-05-01)#       format "long"
//
// A format value has the shape "[cssClass|]layout" where layout is a Go time
// layout. An empty layout echoes the content; blank content formats the
// current time.
package dt
