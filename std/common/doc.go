/*
Package common has the message models several protocols share: the ack, the
problem report, and the routing forward. The v2 models are the bodies of
didcomm.Message, the legacy ones are the JSON of the Aries messages.
*/
package common
