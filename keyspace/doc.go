// Package keyspace mapeia as entidades do form builder para as chaves da
// tabela única (pk/sk) e do índice GSI1 (pk1/sk1), e de volta.
//
// Layout:
//
//	USER     u#<user>       A               pk1 e#<email>  sk1 u#<user>
//	ORG      o#<org>        A
//	ORG_MEM  o#<org>        u#<user>        pk1 u#<user>   sk1 o#<org>
//	ORG_INV  o#<org>        i#<email>       pk1 e#<email>  sk1 i#<org>
//	WS       o#<org>        w#<ws>
//	WS_MEM   w#<ws>         u#<user>        pk1 u#<user>   sk1 o#<org>#w#<ws>
//	FORM     w#<ws>         f#<form>
//	FIELD    f#<form>       d#<field>
//	RESP     f#<form>       r#<response>
//
// Uma organização é identificada pelo id do usuário que a criou.
// Todas as funções são puras; o único erro possível é um identificador vazio
// ou contendo o separador "#".
package keyspace
